package persistence

import (
	"context"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSyncLogRepository implements SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Save appends a log entry
func (r *GormSyncLogRepository) Save(ctx context.Context, entry *sync.SyncLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByMirror lists entries for one mirror row, newest first
func (r *GormSyncLogRepository) FindByMirror(ctx context.Context, mirrorID uuid.UUID, limit int) ([]*sync.SyncLog, error) {
	var entries []*sync.SyncLog
	query := r.db.WithContext(ctx).
		Where("mirror_id = ?", mirrorID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormSyncLogRepository implements SyncLogRepository
var _ sync.SyncLogRepository = (*GormSyncLogRepository)(nil)
