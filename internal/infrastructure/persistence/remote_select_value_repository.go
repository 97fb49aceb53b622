package persistence

import (
	"context"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRemoteSelectValueRepository implements RemoteSelectValueRepository using GORM
type GormRemoteSelectValueRepository struct {
	db *gorm.DB
}

// NewGormRemoteSelectValueRepository creates a new GormRemoteSelectValueRepository
func NewGormRemoteSelectValueRepository(db *gorm.DB) *GormRemoteSelectValueRepository {
	return &GormRemoteSelectValueRepository{db: db}
}

// FindUnmappedBatch streams unmapped values for one integration and language
// in stable order. Ordering by id keeps offset batches deterministic while
// rows in earlier batches get mapped.
func (r *GormRemoteSelectValueRepository) FindUnmappedBatch(ctx context.Context, integrationID uuid.UUID, language string, offset, limit int) ([]*sync.RemoteSelectValue, error) {
	var values []*sync.RemoteSelectValue
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND language = ? AND local_instance_id IS NULL",
			integrationID, language).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

// SaveBatch persists mapped values
func (r *GormRemoteSelectValueRepository) SaveBatch(ctx context.Context, values []*sync.RemoteSelectValue) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(values).Error
}

// Save persists a single value
func (r *GormRemoteSelectValueRepository) Save(ctx context.Context, value *sync.RemoteSelectValue) error {
	return r.db.WithContext(ctx).Save(value).Error
}

// Ensure GormRemoteSelectValueRepository implements RemoteSelectValueRepository
var _ sync.RemoteSelectValueRepository = (*GormRemoteSelectValueRepository)(nil)
