package integration

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidTenantID       = errors.New("integration: invalid tenant ID")
	ErrInvalidPlatformCode   = errors.New("integration: invalid platform code")
	ErrInvalidRateBudget     = errors.New("integration: requests per minute must be positive")
	ErrIntegrationNotFound   = errors.New("integration: integration not found")
	ErrIntegrationInactive   = errors.New("integration: integration is disabled")
	ErrTaskNotFound          = errors.New("integration: queue task not found")
	ErrTaskNotRetryable      = errors.New("integration: task is not in a retryable state")
	ErrInvalidRemoteRequests = errors.New("integration: remote request cost must be positive")
)

// ---------------------------------------------------------------------------
// PlatformCode
// ---------------------------------------------------------------------------

// PlatformCode identifies the external system behind an integration
type PlatformCode string

const (
	// PlatformCodeAmazon represents the Amazon SP-API marketplace
	PlatformCodeAmazon PlatformCode = "AMAZON"
	// PlatformCodeEbay represents the eBay REST marketplace
	PlatformCodeEbay PlatformCode = "EBAY"
	// PlatformCodeShopify represents the Shopify GraphQL marketplace
	PlatformCodeShopify PlatformCode = "SHOPIFY"
	// PlatformCodeMagento represents a Magento REST store
	PlatformCodeMagento PlatformCode = "MAGENTO"
	// PlatformCodeWoocommerce represents a WooCommerce REST store
	PlatformCodeWoocommerce PlatformCode = "WOOCOMMERCE"
	// PlatformCodeShein represents the Shein signed REST marketplace
	PlatformCodeShein PlatformCode = "SHEIN"
	// PlatformCodeQuickbooks represents a QuickBooks accounting account
	PlatformCodeQuickbooks PlatformCode = "QUICKBOOKS"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeAmazon, PlatformCodeEbay, PlatformCodeShopify,
		PlatformCodeMagento, PlatformCodeWoocommerce, PlatformCodeShein,
		PlatformCodeQuickbooks:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// Integration Aggregate
// ---------------------------------------------------------------------------

// DefaultRequestsPerMinute is used when an integration does not configure
// an explicit outbound rate budget.
const DefaultRequestsPerMinute = 60

// Integration is one connection to an external system (a sales channel or an
// accounting account) owned by a tenant. It carries the outbound rate budget
// consulted by the task queue. Integrations are soft-disabled via Deactivate,
// never deleted; pending queue work for a disabled integration is skipped.
type Integration struct {
	shared.TenantAggregateRoot
	Name              string       `gorm:"size:200;not null"`
	PlatformCode      PlatformCode `gorm:"size:20;not null;index"`
	Hostname          string       `gorm:"size:255"`
	RequestsPerMinute int          `gorm:"not null"`
	Active            bool         `gorm:"not null;default:true"`
}

// TableName returns the database table name
func (Integration) TableName() string {
	return "integrations"
}

// NewIntegration creates a new integration for a tenant
func NewIntegration(tenantID uuid.UUID, name string, code PlatformCode, requestsPerMinute int) (*Integration, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !code.IsValid() {
		return nil, ErrInvalidPlatformCode
	}
	if requestsPerMinute == 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	if requestsPerMinute < 0 {
		return nil, ErrInvalidRateBudget
	}

	return &Integration{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		PlatformCode:        code,
		RequestsPerMinute:   requestsPerMinute,
		Active:              true,
	}, nil
}

// Deactivate soft-disables the integration. Queue items already pending are
// skipped by the next sweep rather than executed.
func (i *Integration) Deactivate() {
	i.Active = false
	i.Touch()
}

// Activate re-enables the integration
func (i *Integration) Activate() {
	i.Active = true
	i.Touch()
}

// SetRequestsPerMinute updates the outbound rate budget
func (i *Integration) SetRequestsPerMinute(n int) error {
	if n <= 0 {
		return ErrInvalidRateBudget
	}
	i.RequestsPerMinute = n
	i.Touch()
	return nil
}

// ---------------------------------------------------------------------------
// IntegrationRepository Interface
// ---------------------------------------------------------------------------

// IntegrationRepository defines persistence for integrations
type IntegrationRepository interface {
	// FindByID finds an integration by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)

	// FindActive returns all active integrations across tenants,
	// ordered by creation time
	FindActive(ctx context.Context) ([]*Integration, error)

	// Save creates or updates an integration
	Save(ctx context.Context, integration *Integration) error
}
