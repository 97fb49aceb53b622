package sync

import (
	"context"
	"time"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// RemoteObject Interface
// ---------------------------------------------------------------------------

// RemoteObject is the behavior shared by every mirror row: one row per
// (integration, local instance) pair representing the external system's view
// of a local entity. The sync factory framework is programmed against this
// interface only; each channel supplies concrete types.
//
// Mirror rows are owned by the sync subsystem: deleting the local entity
// cascades into the mirror, never the other way around.
type RemoteObject interface {
	shared.Entity
	GetIntegrationID() uuid.UUID
	GetLocalInstanceID() uuid.UUID
	GetRemoteID() string
	SetRemoteID(remoteID string)
	IsSuccessfullyCreated() bool
	MarkCreated()
	MarkCreateFailed()
	IsOutdated() bool
	MarkOutdated()
	ClearOutdated()
}

// RemoteObjectBase carries the mirror-row bookkeeping fields.
// SuccessfullyCreated flips to false whenever validation or sync fails and
// back to true on the next success; it gates dependent operations such as
// pricing and image pushes.
type RemoteObjectBase struct {
	shared.TenantEntity
	IntegrationID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	LocalInstanceID     uuid.UUID  `gorm:"type:uuid;index"`
	RemoteID            string     `gorm:"size:255;index"`
	SuccessfullyCreated bool       `gorm:"not null;default:false"`
	Outdated            bool       `gorm:"not null;default:false"`
	OutdatedSince       *time.Time `gorm:""`
}

// GetIntegrationID returns the owning integration
func (o *RemoteObjectBase) GetIntegrationID() uuid.UUID {
	return o.IntegrationID
}

// GetLocalInstanceID returns the mirrored local entity ID
func (o *RemoteObjectBase) GetLocalInstanceID() uuid.UUID {
	return o.LocalInstanceID
}

// GetRemoteID returns the external identifier, empty until first create
func (o *RemoteObjectBase) GetRemoteID() string {
	return o.RemoteID
}

// SetRemoteID stores the external identifier
func (o *RemoteObjectBase) SetRemoteID(remoteID string) {
	o.RemoteID = remoteID
	o.Touch()
}

// IsSuccessfullyCreated reports whether the last remote operation succeeded
func (o *RemoteObjectBase) IsSuccessfullyCreated() bool {
	return o.SuccessfullyCreated
}

// MarkCreated records a successful remote operation
func (o *RemoteObjectBase) MarkCreated() {
	o.SuccessfullyCreated = true
	o.Touch()
}

// MarkCreateFailed records a failed remote operation
func (o *RemoteObjectBase) MarkCreateFailed() {
	o.SuccessfullyCreated = false
	o.Touch()
}

// IsOutdated reports whether the mirror is stale after an error
func (o *RemoteObjectBase) IsOutdated() bool {
	return o.Outdated
}

// MarkOutdated marks the mirror stale, stamping when it went stale
func (o *RemoteObjectBase) MarkOutdated() {
	if !o.Outdated {
		now := time.Now()
		o.Outdated = true
		o.OutdatedSince = &now
	}
	o.Touch()
}

// ClearOutdated clears the stale flag after a successful sync
func (o *RemoteObjectBase) ClearOutdated() {
	o.Outdated = false
	o.OutdatedSince = nil
	o.Touch()
}

// NewRemoteObjectBase creates mirror-row bookkeeping for a local instance
func NewRemoteObjectBase(tenantID, integrationID, localInstanceID uuid.UUID) RemoteObjectBase {
	return RemoteObjectBase{
		TenantEntity:    shared.NewTenantEntity(tenantID),
		IntegrationID:   integrationID,
		LocalInstanceID: localInstanceID,
	}
}

// ---------------------------------------------------------------------------
// Concrete Mirrors
// ---------------------------------------------------------------------------

// RemoteProduct mirrors a local product on one channel. Variations carry a
// reference to the parent's mirror row.
type RemoteProduct struct {
	RemoteObjectBase
	RemoteParentProductID *uuid.UUID `gorm:"type:uuid;index"`
	IsVariation           bool       `gorm:"not null;default:false"`
	RemoteSKU             string     `gorm:"size:255"`
	// PriceData caches the last pushed (full, discounted) price pair per
	// currency as JSON; price factories diff against it to avoid
	// redundant remote writes.
	PriceData []byte `gorm:"type:jsonb"`
}

// TableName returns the database table name
func (RemoteProduct) TableName() string {
	return "remote_products"
}

// NewRemoteProduct creates a mirror row for a local product
func NewRemoteProduct(tenantID, integrationID, localProductID uuid.UUID) *RemoteProduct {
	return &RemoteProduct{
		RemoteObjectBase: NewRemoteObjectBase(tenantID, integrationID, localProductID),
	}
}

// SetParent links a variation mirror to its configurable parent mirror
func (p *RemoteProduct) SetParent(parentID uuid.UUID) {
	p.RemoteParentProductID = &parentID
	p.IsVariation = true
	p.Touch()
}

// RemoteProperty mirrors a local property definition on one channel
type RemoteProperty struct {
	RemoteObjectBase
	RemoteName string `gorm:"size:255"`
}

// TableName returns the database table name
func (RemoteProperty) TableName() string {
	return "remote_properties"
}

// RemoteSelectValue mirrors one enumerated select-list value fetched from a
// channel. LocalInstanceID stays nil until reconciliation links it to a
// local select value; remote catalogs carry no stable key back to ours.
type RemoteSelectValue struct {
	shared.TenantEntity
	IntegrationID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_remote_select_values_scope"`
	RemotePropertyID uuid.UUID  `gorm:"type:uuid;not null;index"`
	LocalPropertyID  uuid.UUID  `gorm:"type:uuid;not null"`
	LocalInstanceID  *uuid.UUID `gorm:"type:uuid;index:idx_remote_select_values_scope"`
	RemoteID         string     `gorm:"size:255"`
	RemoteName       string     `gorm:"size:255;not null"`
	TranslatedName   string     `gorm:"size:255"`
	Language         string     `gorm:"size:12;not null;index:idx_remote_select_values_scope"`
}

// TableName returns the database table name
func (RemoteSelectValue) TableName() string {
	return "remote_select_values"
}

// IsMapped reports whether the value is already linked to a local record
func (v *RemoteSelectValue) IsMapped() bool {
	return v.LocalInstanceID != nil
}

// MapTo links the remote value to a local select value
func (v *RemoteSelectValue) MapTo(localID uuid.UUID) {
	v.LocalInstanceID = &localID
	v.Touch()
}

// RemoteProductProperty mirrors one property value assigned to a product
// on one channel
type RemoteProductProperty struct {
	RemoteObjectBase
	RemoteProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	ValuePayload    []byte    `gorm:"type:jsonb"`
}

// TableName returns the database table name
func (RemoteProductProperty) TableName() string {
	return "remote_product_properties"
}

// ---------------------------------------------------------------------------
// Mirror Repositories
// ---------------------------------------------------------------------------

// RemoteProductRepository defines persistence for product mirrors
type RemoteProductRepository interface {
	// FindByID finds a mirror by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*RemoteProduct, error)

	// FindByLocalInstance finds the mirror for a local product on an
	// integration, if any
	FindByLocalInstance(ctx context.Context, integrationID, localProductID uuid.UUID) (*RemoteProduct, error)

	// FindVariations returns all variation mirrors under a parent mirror
	FindVariations(ctx context.Context, remoteParentID uuid.UUID) ([]*RemoteProduct, error)

	// Save creates or updates a mirror row
	Save(ctx context.Context, product *RemoteProduct) error
}

// RemoteSelectValueRepository defines persistence for select-value mirrors
type RemoteSelectValueRepository interface {
	// FindUnmappedBatch streams unmapped values for one integration and
	// language in stable order, offset-batched to bound memory
	FindUnmappedBatch(ctx context.Context, integrationID uuid.UUID, language string, offset, limit int) ([]*RemoteSelectValue, error)

	// SaveBatch persists mapped values
	SaveBatch(ctx context.Context, values []*RemoteSelectValue) error

	// Save persists a single value
	Save(ctx context.Context, value *RemoteSelectValue) error
}
