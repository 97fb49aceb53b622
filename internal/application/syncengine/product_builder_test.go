package syncengine

import (
	"context"
	"testing"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProductRepo serves products by ID
type stubProductRepo struct {
	byID map[uuid.UUID]*catalog.Product
}

func (r *stubProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (r *stubProductRepo) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*catalog.Product, error) {
	for _, p := range r.byID {
		if p.TenantID == tenantID && p.SKU == sku {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubProductRepo) FindChildren(ctx context.Context, parentID uuid.UUID) ([]*catalog.Product, error) {
	return nil, nil
}

func (r *stubProductRepo) Save(ctx context.Context, product *catalog.Product) error {
	r.byID[product.ID] = product
	return nil
}

func TestProductPayloadBuilder_Build(t *testing.T) {
	tenantID := uuid.New()
	product, err := catalog.NewProduct(tenantID, "SKU-1", "Red Chair", catalog.ProductTypeSimple)
	require.NoError(t, err)
	repo := &stubProductRepo{byID: map[uuid.UUID]*catalog.Product{product.ID: product}}

	inst, err := integration.NewIntegration(tenantID, "Shop", integration.PlatformCodeShopify, 60)
	require.NoError(t, err)
	mirror := sync.NewRemoteProduct(tenantID, inst.ID, product.ID)

	builder := NewProductPayloadBuilder(repo)
	payload, err := builder.Build(context.Background(), &Subject{
		TenantID:    tenantID,
		Integration: inst,
		Mirror:      mirror,
	})

	require.NoError(t, err)
	assert.Equal(t, "SKU-1", payload["sku"])
	assert.Equal(t, "Red Chair", payload["name"])
	assert.Equal(t, true, payload["active"])
	assert.NotContains(t, payload, "parent_id")
}

func TestProductPayloadBuilder_Build_VariationCarriesParentRemoteID(t *testing.T) {
	tenantID := uuid.New()
	product, err := catalog.NewProduct(tenantID, "SKU-1-S", "Red Chair S", catalog.ProductTypeVariation)
	require.NoError(t, err)
	repo := &stubProductRepo{byID: map[uuid.UUID]*catalog.Product{product.ID: product}}

	integrationID := uuid.New()
	parentMirror := sync.NewRemoteProduct(tenantID, integrationID, uuid.New())
	parentMirror.SetRemoteID("rem-parent")
	mirror := sync.NewRemoteProduct(tenantID, integrationID, product.ID)
	mirror.SetParent(parentMirror.ID)

	builder := NewProductPayloadBuilder(repo)
	payload, err := builder.Build(context.Background(), &Subject{
		TenantID: tenantID,
		Mirror:   mirror,
		Parent:   parentMirror,
	})

	require.NoError(t, err)
	assert.Equal(t, "rem-parent", payload["parent_id"])
}

func TestProductPayloadBuilder_Build_UnknownProduct(t *testing.T) {
	repo := &stubProductRepo{byID: map[uuid.UUID]*catalog.Product{}}
	mirror := sync.NewRemoteProduct(uuid.New(), uuid.New(), uuid.New())

	builder := NewProductPayloadBuilder(repo)
	_, err := builder.Build(context.Background(), &Subject{Mirror: mirror})

	assert.Error(t, err)
}
