package importer

import (
	"context"
	"testing"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/imports"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunRepo struct {
	byID  map[uuid.UUID]*imports.ImportRun
	saves int
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{byID: make(map[uuid.UUID]*imports.ImportRun)}
}

func (f *fakeRunRepo) FindByID(ctx context.Context, id uuid.UUID) (*imports.ImportRun, error) {
	run, ok := f.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return run, nil
}

func (f *fakeRunRepo) Save(ctx context.Context, run *imports.ImportRun) error {
	f.byID[run.ID] = run
	f.saves++
	return nil
}

type serviceFixture struct {
	runs         *fakeRunRepo
	products     *fakeProductRepo
	properties   *fakePropertyRepo
	selectValues *fakeSelectValueStore
	mirrors      *fakeMirrorRepo
	service      *Service
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		runs:         newFakeRunRepo(),
		products:     newFakeProductRepo(),
		properties:   newFakePropertyRepo(),
		selectValues: &fakeSelectValueStore{},
		mirrors:      newFakeMirrorRepo(),
	}
	f.service = NewService(f.runs, f.products, f.properties, f.selectValues, f.mirrors, zap.NewNop())
	return f
}

func (f *serviceFixture) newPendingRun(updateOnly bool) *imports.ImportRun {
	run := imports.NewImportRun(uuid.New(), uuid.New(), updateOnly)
	f.runs.byID[run.ID] = run
	return run
}

func TestService_ImportProducts_MixedBatch(t *testing.T) {
	f := newServiceFixture()
	run := f.newPendingRun(false)

	result, err := f.service.ImportProducts(context.Background(), run.ID, []ProductItem{
		{SKU: "DESK", Name: "Desk"},
		{SKU: "CHAIR-RED", Name: "Chair Red", ParentSKU: "CHAIR", ParentName: "Chair"},
	})
	require.NoError(t, err)

	assert.Equal(t, imports.RunStatusCompleted, result.Status)
	// One simple product plus the parent and variation pair.
	assert.Equal(t, 3, result.CreatedCount)
	assert.Equal(t, 0, result.ErrorCount)

	desk, err := f.products.FindBySKU(context.Background(), run.TenantID, "DESK")
	require.NoError(t, err)
	assert.Equal(t, catalog.ProductTypeSimple, desk.Type)

	variation, err := f.products.FindBySKU(context.Background(), run.TenantID, "CHAIR-RED")
	require.NoError(t, err)
	assert.Equal(t, catalog.ProductTypeVariation, variation.Type)
	require.NotNil(t, variation.ParentID)

	// Only the simple path creates mirrors.
	assert.Equal(t, 1, f.mirrors.saves)
	_, err = f.mirrors.FindByLocalInstance(context.Background(), run.IntegrationID, desk.ID)
	assert.NoError(t, err)
}

func TestService_ImportProducts_ItemErrorDoesNotAbortBatch(t *testing.T) {
	f := newServiceFixture()
	run := f.newPendingRun(false)

	result, err := f.service.ImportProducts(context.Background(), run.ID, []ProductItem{
		{SKU: ""},
		{SKU: "DESK", Name: "Desk"},
	})
	require.NoError(t, err)

	assert.Equal(t, imports.RunStatusCompleted, result.Status)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.CreatedCount)
}

func TestService_ImportProducts_UnknownRun(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.ImportProducts(context.Background(), uuid.New(), []ProductItem{{SKU: "DESK"}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_ImportProducts_RunIsOneShot(t *testing.T) {
	f := newServiceFixture()
	run := f.newPendingRun(false)

	_, err := f.service.ImportProducts(context.Background(), run.ID, []ProductItem{{SKU: "DESK", Name: "Desk"}})
	require.NoError(t, err)

	_, err = f.service.ImportProducts(context.Background(), run.ID, []ProductItem{{SKU: "LAMP", Name: "Lamp"}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestService_ImportProducts_UpdateOnlySkipsUnknown(t *testing.T) {
	f := newServiceFixture()
	run := f.newPendingRun(true)

	result, err := f.service.ImportProducts(context.Background(), run.ID, []ProductItem{
		{SKU: "DESK", Name: "Desk"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, 0, result.CreatedCount)
	_, err = f.products.FindBySKU(context.Background(), run.TenantID, "DESK")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_ImportSelectValues_CreatesAndDefaultsLanguage(t *testing.T) {
	f := newServiceFixture()
	run := f.newPendingRun(false)

	result, err := f.service.ImportSelectValues(context.Background(), run.ID, []SelectValueItem{
		{Property: "Color", Value: "Red"},
		{Property: "Color", Value: "Blau", Language: "de"},
	})
	require.NoError(t, err)

	assert.Equal(t, imports.RunStatusCompleted, result.Status)
	assert.Equal(t, 2, result.CreatedCount)
	require.Len(t, f.selectValues.translations, 2)
	assert.Equal(t, DefaultImportLanguage, f.selectValues.translations[0].Language)
	assert.Equal(t, "de", f.selectValues.translations[1].Language)

	// Both values hang off the same property definition.
	assert.Equal(t, 1, f.properties.saves)
}
