package importer

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/imports"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
)

// productRecord adapts a catalog product to the import record contract
type productRecord struct {
	product *catalog.Product
}

// Product returns the wrapped catalog product
func (r *productRecord) Product() *catalog.Product {
	return r.product
}

func (r *productRecord) Attribute(name string) (any, bool) {
	switch name {
	case "sku":
		return r.product.SKU, true
	case "name":
		return r.product.Name, true
	case "active":
		return r.product.Active, true
	}
	return nil, false
}

func (r *productRecord) SetAttribute(name string, value any) error {
	switch name {
	case "sku":
		return fmt.Errorf("sku is the record identity and cannot change")
	case "name":
		text, ok := value.(string)
		if !ok {
			return fmt.Errorf("name must be a string")
		}
		if text == "" {
			return catalog.ErrInvalidName
		}
		r.product.Name = text
	case "active":
		active, ok := value.(bool)
		if !ok {
			return fmt.Errorf("active must be a boolean")
		}
		r.product.Active = active
	default:
		return fmt.Errorf("unknown attribute %q", name)
	}
	r.product.Touch()
	return nil
}

// ProductStore reconciles imported payloads into local products keyed on
// SKU. Created records start as simple products with the SKU as a
// placeholder name until the payload diff fills the real one in.
type ProductStore struct {
	products catalog.ProductRepository
}

// NewProductStore creates a product store over the catalog repository
func NewProductStore(products catalog.ProductRepository) *ProductStore {
	return &ProductStore{products: products}
}

// Find looks up the product by tenant and SKU
func (s *ProductStore) Find(ctx context.Context, run *imports.ImportRun, identifiers map[string]any) (Record, error) {
	sku, err := identifierString(identifiers, "sku")
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindBySKU(ctx, run.TenantID, sku)
	if err != nil {
		return nil, err
	}
	return &productRecord{product: product}, nil
}

// Create builds a new simple product under the run's tenant
func (s *ProductStore) Create(ctx context.Context, run *imports.ImportRun, identifiers map[string]any) (Record, error) {
	sku, err := identifierString(identifiers, "sku")
	if err != nil {
		return nil, err
	}
	product, err := catalog.NewProduct(run.TenantID, sku, sku, catalog.ProductTypeSimple)
	if err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	return &productRecord{product: product}, nil
}

// Save persists the product
func (s *ProductStore) Save(ctx context.Context, record Record) error {
	pr, ok := record.(*productRecord)
	if !ok {
		return fmt.Errorf("%w: record is not a product", shared.ErrInvalidInput)
	}
	return s.products.Save(ctx, pr.product)
}

// ProductMirrorFactory attaches a remote mirror row to each imported
// product so the sync factories can later push it back out. Existing
// mirrors are left untouched.
type ProductMirrorFactory struct {
	mirrors sync.RemoteProductRepository
}

// NewProductMirrorFactory creates a mirror factory over the mirror store
func NewProductMirrorFactory(mirrors sync.RemoteProductRepository) *ProductMirrorFactory {
	return &ProductMirrorFactory{mirrors: mirrors}
}

// CreateMirror creates the mirror row for the run's integration if the
// product does not have one yet
func (f *ProductMirrorFactory) CreateMirror(ctx context.Context, run *imports.ImportRun, record Record, structured map[string]any) error {
	pr, ok := record.(*productRecord)
	if !ok {
		return fmt.Errorf("%w: record is not a product", shared.ErrInvalidInput)
	}

	_, err := f.mirrors.FindByLocalInstance(ctx, run.IntegrationID, pr.product.ID)
	if err == nil {
		return nil
	}
	if !shared.IsNotFound(err) {
		return err
	}

	mirror := sync.NewRemoteProduct(run.TenantID, run.IntegrationID, pr.product.ID)
	mirror.RemoteSKU = pr.product.SKU
	mirror.IsVariation = pr.product.Type == catalog.ProductTypeVariation
	return f.mirrors.Save(ctx, mirror)
}

// identifierString pulls a required string identifier out of the extracted
// identifier map
func identifierString(identifiers map[string]any, key string) (string, error) {
	raw, ok := identifiers[key]
	if !ok {
		return "", fmt.Errorf("%w: identifier %q missing", shared.ErrInvalidInput, key)
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: identifier %q must be a non-empty string", shared.ErrInvalidInput, key)
	}
	return value, nil
}
