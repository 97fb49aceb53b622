package syncengine

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/sync"
)

// Task names bound to queue registrations at startup. They are stored on
// queue and sync request rows, so renaming one invalidates persisted work.
const (
	TaskProductResync = "product_resync"
	TaskParentResync  = "parent_resync"
	TaskPriceSync     = "price_sync"
)

// ProductPayloadBuilder builds the generic product payload from the local
// catalog record behind a mirror. Channels with richer field mappings wrap
// or replace it.
type ProductPayloadBuilder struct {
	products catalog.ProductRepository
}

// NewProductPayloadBuilder creates a builder reading from the local catalog
func NewProductPayloadBuilder(products catalog.ProductRepository) *ProductPayloadBuilder {
	return &ProductPayloadBuilder{products: products}
}

var _ PayloadBuilder = (*ProductPayloadBuilder)(nil)

// Build loads the local product behind the subject's mirror and maps it to
// the channel payload. Variation subjects carry the parent's remote ID so
// the channel can attach them.
func (b *ProductPayloadBuilder) Build(ctx context.Context, subject *Subject) (Payload, error) {
	product, err := b.products.FindByID(ctx, subject.Mirror.GetLocalInstanceID())
	if err != nil {
		return nil, fmt.Errorf("syncengine: loading local product: %w", err)
	}

	payload := Payload{
		"sku":    product.SKU,
		"name":   product.Name,
		"type":   string(product.Type),
		"active": product.Active,
	}

	if mirror, ok := subject.Mirror.(*sync.RemoteProduct); ok && mirror.IsVariation {
		if subject.Parent != nil && subject.Parent.GetRemoteID() != "" {
			payload["parent_id"] = subject.Parent.GetRemoteID()
		}
	}

	return payload, nil
}
