package sync

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncRequest Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidRemoteProduct = errors.New("sync: invalid remote product ID")
	ErrInvalidSyncType      = errors.New("sync: invalid sync type")
	ErrRequestNotPending    = errors.New("sync: request is not pending")
)

// ---------------------------------------------------------------------------
// SyncType / RequestStatus
// ---------------------------------------------------------------------------

// SyncType is the granularity of a pending resync intent
type SyncType string

const (
	// SyncTypeProperty resyncs a single product property
	SyncTypeProperty SyncType = "PROPERTY"
	// SyncTypeProduct resyncs a whole product
	SyncTypeProduct SyncType = "PRODUCT"
	// SyncTypeParent resyncs a configurable parent and all its variations
	SyncTypeParent SyncType = "PARENT"
)

// IsValid returns true if the sync type is valid
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeProperty, SyncTypeProduct, SyncTypeParent:
		return true
	}
	return false
}

// RequestStatus represents the state of a sync request
type RequestStatus string

const (
	// RequestStatusPending means the request will execute
	RequestStatusPending RequestStatus = "PENDING"
	// RequestStatusSkipped means another request superseded this one
	RequestStatusSkipped RequestStatus = "SKIPPED"
)

// ---------------------------------------------------------------------------
// SyncRequest Entity
// ---------------------------------------------------------------------------

// SyncRequest is one pending "this remote object needs a resync" intent.
// At most one PENDING request exists per (remote product, sync type, property)
// triple; duplicates are stored SKIPPED with SkippedForID pointing at the
// surviving request. When a burst of property-level requests escalates to a
// product-level (or parent-level) request, every superseded row chains to the
// survivor the same way, so a SKIPPED row always resolves to the one PENDING
// request that will actually execute.
type SyncRequest struct {
	shared.TenantEntity
	IntegrationID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	RemoteProductID uuid.UUID     `gorm:"type:uuid;not null;index:idx_sync_requests_product_type"`
	SyncType        SyncType      `gorm:"size:20;not null;index:idx_sync_requests_product_type"`
	Status          RequestStatus `gorm:"size:20;not null;index"`
	SkippedForID    *uuid.UUID    `gorm:"type:uuid;index"`
	TaskName        string        `gorm:"size:255;not null"`
	// PropertyID identifies which local property changed for
	// property-level requests; nil for product and parent levels.
	PropertyID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the database table name
func (SyncRequest) TableName() string {
	return "sync_requests"
}

// NewSyncRequest creates a new pending sync request
func NewSyncRequest(tenantID, integrationID, remoteProductID uuid.UUID, syncType SyncType, taskName string, propertyID *uuid.UUID) (*SyncRequest, error) {
	if remoteProductID == uuid.Nil {
		return nil, ErrInvalidRemoteProduct
	}
	if !syncType.IsValid() {
		return nil, ErrInvalidSyncType
	}

	return &SyncRequest{
		TenantEntity:    shared.NewTenantEntity(tenantID),
		IntegrationID:   integrationID,
		RemoteProductID: remoteProductID,
		SyncType:        syncType,
		Status:          RequestStatusPending,
		TaskName:        taskName,
		PropertyID:      propertyID,
	}, nil
}

// MarkSkippedFor marks the request as superseded by another request
func (r *SyncRequest) MarkSkippedFor(survivorID uuid.UUID) error {
	if r.Status != RequestStatusPending {
		return ErrRequestNotPending
	}
	r.Status = RequestStatusSkipped
	r.SkippedForID = &survivorID
	r.Touch()
	return nil
}

// SameIdentity reports whether another pending request targets the exact
// same work: same remote product, sync type and changed property.
func (r *SyncRequest) SameIdentity(remoteProductID uuid.UUID, syncType SyncType, propertyID *uuid.UUID) bool {
	if r.RemoteProductID != remoteProductID || r.SyncType != syncType {
		return false
	}
	if r.PropertyID == nil || propertyID == nil {
		return r.PropertyID == nil && propertyID == nil
	}
	return *r.PropertyID == *propertyID
}

// ---------------------------------------------------------------------------
// SyncRequestRepository Interface
// ---------------------------------------------------------------------------

// SyncRequestRepository defines persistence for sync requests.
// Implementations must run the escalation bookkeeping of the engine inside
// a single transaction per decision, so a reader never observes a SKIPPED
// request chained to another SKIPPED request.
type SyncRequestRepository interface {
	// Save creates a sync request row
	Save(ctx context.Context, request *SyncRequest) error

	// Update persists state changes
	Update(ctx context.Context, request *SyncRequest) error

	// FindByID finds a request by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRequest, error)

	// FindPendingByProduct returns PENDING requests for one remote product
	FindPendingByProduct(ctx context.Context, remoteProductID uuid.UUID) ([]*SyncRequest, error)

	// FindPendingProductLevelForSiblings returns PENDING product-level
	// requests across all variations under one remote parent product
	FindPendingProductLevelForSiblings(ctx context.Context, remoteParentID uuid.UUID) ([]*SyncRequest, error)

	// BulkMarkSkipped marks the given requests SKIPPED pointing at the
	// survivor, in one statement
	BulkMarkSkipped(ctx context.Context, ids []uuid.UUID, survivorID uuid.UUID) error

	// InTransaction runs fn with a repository bound to a single database
	// transaction; the escalation engine wraps each decision in one
	InTransaction(ctx context.Context, fn func(repo SyncRequestRepository) error) error
}
