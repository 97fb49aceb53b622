package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSyncRequestRepository implements SyncRequestRepository using GORM.
// InTransaction returns a repository bound to the transaction, so every
// escalation decision commits atomically.
type GormSyncRequestRepository struct {
	db *gorm.DB
}

// NewGormSyncRequestRepository creates a new GormSyncRequestRepository
func NewGormSyncRequestRepository(db *gorm.DB) *GormSyncRequestRepository {
	return &GormSyncRequestRepository{db: db}
}

// Save creates a sync request row
func (r *GormSyncRequestRepository) Save(ctx context.Context, request *sync.SyncRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// Update persists state changes
func (r *GormSyncRequestRepository) Update(ctx context.Context, request *sync.SyncRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

// FindByID finds a request by its ID
func (r *GormSyncRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.SyncRequest, error) {
	var request sync.SyncRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// FindPendingByProduct returns PENDING requests for one remote product
func (r *GormSyncRequestRepository) FindPendingByProduct(ctx context.Context, remoteProductID uuid.UUID) ([]*sync.SyncRequest, error) {
	var requests []*sync.SyncRequest
	if err := r.db.WithContext(ctx).
		Where("remote_product_id = ? AND status = ?", remoteProductID, sync.RequestStatusPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindPendingProductLevelForSiblings returns PENDING product-level requests
// across all variations under one remote parent product
func (r *GormSyncRequestRepository) FindPendingProductLevelForSiblings(ctx context.Context, remoteParentID uuid.UUID) ([]*sync.SyncRequest, error) {
	var requests []*sync.SyncRequest
	if err := r.db.WithContext(ctx).
		Joins("JOIN remote_products ON remote_products.id = sync_requests.remote_product_id").
		Where("remote_products.remote_parent_product_id = ?", remoteParentID).
		Where("sync_requests.sync_type = ? AND sync_requests.status = ?",
			sync.SyncTypeProduct, sync.RequestStatusPending).
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// BulkMarkSkipped marks the given requests SKIPPED pointing at the survivor
func (r *GormSyncRequestRepository) BulkMarkSkipped(ctx context.Context, ids []uuid.UUID, survivorID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&sync.SyncRequest{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":         sync.RequestStatusSkipped,
			"skipped_for_id": survivorID,
			"updated_at":     time.Now(),
		}).Error
}

// InTransaction runs fn with a repository bound to a single transaction
func (r *GormSyncRequestRepository) InTransaction(ctx context.Context, fn func(repo sync.SyncRequestRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormSyncRequestRepository{db: tx})
	})
}

// Ensure GormSyncRequestRepository implements SyncRequestRepository
var _ sync.SyncRequestRepository = (*GormSyncRequestRepository)(nil)
