package importer

import (
	"context"
	"testing"

	"github.com/channelsync/backend/internal/domain/imports"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecord struct {
	fields map[string]any
	setErr error
}

func (r *fakeRecord) Attribute(name string) (any, bool) {
	value, ok := r.fields[name]
	return value, ok
}

func (r *fakeRecord) SetAttribute(name string, value any) error {
	if r.setErr != nil {
		return r.setErr
	}
	r.fields[name] = value
	return nil
}

type fakeStore struct {
	existing  map[string]*fakeRecord
	fields    []string
	findCalls int
	saves     int
	saveErr   error
}

func newFakeStore(fields ...string) *fakeStore {
	return &fakeStore{existing: make(map[string]*fakeRecord), fields: fields}
}

func (s *fakeStore) key(identifiers map[string]any) string {
	for _, value := range identifiers {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return ""
}

func (s *fakeStore) Find(ctx context.Context, run *imports.ImportRun, identifiers map[string]any) (Record, error) {
	s.findCalls++
	record, ok := s.existing[s.key(identifiers)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return record, nil
}

func (s *fakeStore) Create(ctx context.Context, run *imports.ImportRun, identifiers map[string]any) (Record, error) {
	record := &fakeRecord{fields: make(map[string]any, len(s.fields))}
	for _, field := range s.fields {
		record.fields[field] = ""
	}
	for path, value := range identifiers {
		record.fields[path] = value
	}
	s.existing[s.key(identifiers)] = record
	return record, nil
}

func (s *fakeStore) Save(ctx context.Context, record Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	return nil
}

type fakeTranslations struct {
	record Record
	err    error
	calls  int
}

func (f *fakeTranslations) Resolve(ctx context.Context, run *imports.ImportRun, structured map[string]any) (Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type fakeMirrorFactory struct {
	calls int
	err   error
}

func (f *fakeMirrorFactory) CreateMirror(ctx context.Context, run *imports.ImportRun, record Record, structured map[string]any) error {
	f.calls++
	return f.err
}

func newRunningImportRun(updateOnly bool) *imports.ImportRun {
	run := imports.NewImportRun(uuid.New(), uuid.New(), updateOnly)
	run.Start()
	return run
}

func TestNewOperation_Validation(t *testing.T) {
	_, err := NewOperation(OperationConfig{}, newFakeStore(), zap.NewNop())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewOperation(OperationConfig{IdentifierFields: []string{"sku"}}, nil, zap.NewNop())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestOperation_Run_CreatesMissingRecord(t *testing.T) {
	store := newFakeStore("sku", "name")
	op, err := NewOperation(OperationConfig{IdentifierFields: []string{"sku"}}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	outcome, err := op.Run(context.Background(), run, map[string]any{"sku": "DESK-1", "name": "Desk"})
	require.NoError(t, err)

	assert.True(t, outcome.Created)
	assert.True(t, outcome.Changed)
	assert.Equal(t, 1, run.CreatedCount)
	assert.Zero(t, run.UpdatedCount)
	assert.Equal(t, 1, store.saves)

	name, ok := outcome.Record.Attribute("name")
	require.True(t, ok)
	assert.Equal(t, "Desk", name)
}

func TestOperation_Run_IdenticalDataIsNoop(t *testing.T) {
	store := newFakeStore()
	store.existing["DESK-1"] = &fakeRecord{fields: map[string]any{"sku": "DESK-1", "name": "Desk"}}
	op, err := NewOperation(OperationConfig{IdentifierFields: []string{"sku"}}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	outcome, err := op.Run(context.Background(), run, map[string]any{"sku": "DESK-1", "name": "Desk"})
	require.NoError(t, err)

	assert.False(t, outcome.Created)
	assert.False(t, outcome.Changed)
	assert.Equal(t, 1, run.SkippedCount)
	assert.Zero(t, store.saves)
}

func TestOperation_Run_SavesOnlyWhenChanged(t *testing.T) {
	store := newFakeStore()
	store.existing["DESK-1"] = &fakeRecord{fields: map[string]any{"sku": "DESK-1", "name": "Desk"}}
	op, err := NewOperation(OperationConfig{IdentifierFields: []string{"sku"}}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	outcome, err := op.Run(context.Background(), run, map[string]any{"sku": "DESK-1", "name": "Standing Desk"})
	require.NoError(t, err)

	assert.True(t, outcome.Changed)
	assert.Equal(t, 1, run.UpdatedCount)
	assert.Equal(t, 1, store.saves)

	name, _ := outcome.Record.Attribute("name")
	assert.Equal(t, "Standing Desk", name)
}

func TestOperation_Run_MissingIdentifierIsError(t *testing.T) {
	store := newFakeStore()
	op, err := NewOperation(OperationConfig{IdentifierFields: []string{"sku"}}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	_, err = op.Run(context.Background(), run, map[string]any{"name": "Desk"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, 1, run.ErrorCount)
	assert.Zero(t, store.findCalls)
}

func TestOperation_Run_UpdateOnlySkipsUnknownRecord(t *testing.T) {
	store := newFakeStore()
	op, err := NewOperation(OperationConfig{IdentifierFields: []string{"sku"}}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(true)
	outcome, err := op.Run(context.Background(), run, map[string]any{"sku": "DESK-1"})
	require.NoError(t, err)

	assert.True(t, outcome.Skipped)
	assert.Equal(t, 1, run.SkippedCount)
	assert.Empty(t, store.existing)
}

func TestOperation_Run_AllowCreateOverridesUpdateOnly(t *testing.T) {
	store := newFakeStore("sku", "name")
	op, err := NewOperation(OperationConfig{
		IdentifierFields: []string{"sku"},
		AllowCreate:      true,
	}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(true)
	outcome, err := op.Run(context.Background(), run, map[string]any{"sku": "DESK-1", "name": "Desk"})
	require.NoError(t, err)

	assert.True(t, outcome.Created)
	assert.Equal(t, 1, run.CreatedCount)
}

func TestOperation_Run_TranslationIdentityWins(t *testing.T) {
	store := newFakeStore()
	translated := &fakeRecord{fields: map[string]any{"sku": "DESK-1", "name": "Desk"}}
	translations := &fakeTranslations{record: translated}
	op, err := NewOperation(OperationConfig{
		IdentifierFields: []string{"sku"},
		Translations:     translations,
	}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	outcome, err := op.Run(context.Background(), run, map[string]any{"sku": "OTHER-SKU", "name": "Desk"})
	require.NoError(t, err)

	assert.Same(t, Record(translated), outcome.Record)
	assert.False(t, outcome.Created)
	assert.Equal(t, 1, translations.calls)
	assert.Zero(t, store.findCalls)
}

func TestOperation_Run_TranslationMissFallsBackToIdentifiers(t *testing.T) {
	store := newFakeStore()
	store.existing["DESK-1"] = &fakeRecord{fields: map[string]any{"sku": "DESK-1", "name": "Desk"}}
	translations := &fakeTranslations{err: shared.ErrNotFound}
	op, err := NewOperation(OperationConfig{
		IdentifierFields: []string{"sku"},
		Translations:     translations,
	}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	outcome, err := op.Run(context.Background(), run, map[string]any{"sku": "DESK-1", "name": "Desk"})
	require.NoError(t, err)

	assert.NotNil(t, outcome.Record)
	assert.Equal(t, 1, store.findCalls)
}

func TestOperation_Run_NestedIdentifierPath(t *testing.T) {
	store := newFakeStore("translation.sku", "name")
	op, err := NewOperation(OperationConfig{IdentifierFields: []string{"translation.sku"}}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	outcome, err := op.Run(context.Background(), run, map[string]any{
		"translation": map[string]any{"sku": "DESK-1"},
		"name":        "Desk",
	})
	require.NoError(t, err)

	assert.True(t, outcome.Created)
	sku, ok := outcome.Record.Attribute("translation.sku")
	require.True(t, ok)
	assert.Equal(t, "DESK-1", sku)
}

func TestOperation_Run_IgnoresUnknownFields(t *testing.T) {
	store := newFakeStore()
	store.existing["DESK-1"] = &fakeRecord{fields: map[string]any{"sku": "DESK-1"}}
	op, err := NewOperation(OperationConfig{IdentifierFields: []string{"sku"}}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	outcome, err := op.Run(context.Background(), run, map[string]any{
		"sku":          "DESK-1",
		"channel_only": "noise",
	})
	require.NoError(t, err)

	assert.False(t, outcome.Changed)
	_, ok := outcome.Record.Attribute("channel_only")
	assert.False(t, ok)
}

func TestOperation_Run_CreatesMirrorRow(t *testing.T) {
	store := newFakeStore("sku")
	mirror := &fakeMirrorFactory{}
	op, err := NewOperation(OperationConfig{
		IdentifierFields: []string{"sku"},
		Mirror:           mirror,
	}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	_, err = op.Run(context.Background(), run, map[string]any{"sku": "DESK-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, mirror.calls)
}

func TestOperation_Run_MirrorFailureCountsAsError(t *testing.T) {
	store := newFakeStore("sku")
	mirror := &fakeMirrorFactory{err: assert.AnError}
	op, err := NewOperation(OperationConfig{
		IdentifierFields: []string{"sku"},
		Mirror:           mirror,
	}, store, zap.NewNop())
	require.NoError(t, err)

	run := newRunningImportRun(false)
	_, err = op.Run(context.Background(), run, map[string]any{"sku": "DESK-1"})
	assert.Error(t, err)
	assert.Equal(t, 1, run.ErrorCount)
}
