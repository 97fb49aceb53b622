package catalog

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSKU       = errors.New("catalog: SKU must not be empty")
	ErrInvalidName      = errors.New("catalog: name must not be empty")
	ErrInvalidType      = errors.New("catalog: invalid product type")
	ErrNotConfigurable  = errors.New("catalog: product is not configurable")
	ErrInvalidParent    = errors.New("catalog: variation requires a parent product")
	ErrInvalidCurrency  = errors.New("catalog: currency code must not be empty")
	ErrNegativePrice    = errors.New("catalog: price must not be negative")
	ErrDiscountExceeded = errors.New("catalog: discounted price above full price")
)

// ProductType distinguishes leaf products from variation families
type ProductType string

const (
	// ProductTypeSimple is a standalone sellable product
	ProductTypeSimple ProductType = "SIMPLE"
	// ProductTypeConfigurable groups variations under one parent
	ProductTypeConfigurable ProductType = "CONFIGURABLE"
	// ProductTypeBundle bundles several products
	ProductTypeBundle ProductType = "BUNDLE"
	// ProductTypeVariation is one concrete variant of a configurable
	ProductTypeVariation ProductType = "VARIATION"
)

// IsValid returns true if the product type is valid
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeSimple, ProductTypeConfigurable, ProductTypeBundle, ProductTypeVariation:
		return true
	}
	return false
}

// IsParentType reports whether the type can own variations
func (t ProductType) IsParentType() bool {
	return t == ProductTypeConfigurable || t == ProductTypeBundle
}

// Product is the local canonical product record the sync core pushes out
// and imports into. Deliberately narrow: the wider PIM surface lives in
// other services.
type Product struct {
	shared.TenantAggregateRoot
	SKU      string      `gorm:"size:100;not null;uniqueIndex:idx_products_tenant_sku"`
	Name     string      `gorm:"size:255;not null"`
	Type     ProductType `gorm:"size:20;not null"`
	ParentID *uuid.UUID  `gorm:"type:uuid;index"`
	Active   bool        `gorm:"not null;default:true"`
}

// TableName returns the database table name
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(tenantID uuid.UUID, sku, name string, productType ProductType) (*Product, error) {
	if sku == "" {
		return nil, ErrInvalidSKU
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	if !productType.IsValid() {
		return nil, ErrInvalidType
	}

	return &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 sku,
		Name:                name,
		Type:                productType,
		Active:              true,
	}, nil
}

// AttachToParent links a variation to its configurable parent
func (p *Product) AttachToParent(parent *Product) error {
	if !parent.Type.IsParentType() {
		return ErrNotConfigurable
	}
	p.ParentID = &parent.ID
	p.Type = ProductTypeVariation
	p.Touch()
	return nil
}

// ProductPrice is the (full, discounted) price pair of a product in one
// currency. DiscountedPrice equal to Price means no discount applies.
type ProductPrice struct {
	shared.TenantEntity
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_product_prices_currency"`
	Currency        string          `gorm:"size:3;not null;uniqueIndex:idx_product_prices_currency"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountedPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the database table name
func (ProductPrice) TableName() string {
	return "product_prices"
}

// NewProductPrice creates a price pair for a product in one currency
func NewProductPrice(tenantID, productID uuid.UUID, currency string, price, discounted decimal.Decimal) (*ProductPrice, error) {
	if currency == "" {
		return nil, ErrInvalidCurrency
	}
	if price.IsNegative() || discounted.IsNegative() {
		return nil, ErrNegativePrice
	}
	if discounted.GreaterThan(price) {
		return nil, ErrDiscountExceeded
	}

	return &ProductPrice{
		TenantEntity:    shared.NewTenantEntity(tenantID),
		ProductID:       productID,
		Currency:        currency,
		Price:           price,
		DiscountedPrice: discounted,
	}, nil
}

// ProductRepository defines persistence for products
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindBySKU finds a product by tenant and SKU
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*Product, error)

	// FindChildren returns the variations of a parent product
	FindChildren(ctx context.Context, parentID uuid.UUID) ([]*Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error
}

// ProductPriceRepository defines persistence for product prices
type ProductPriceRepository interface {
	// FindByProduct returns all currency price pairs of a product
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]*ProductPrice, error)

	// Save creates or updates a price pair
	Save(ctx context.Context, price *ProductPrice) error
}
