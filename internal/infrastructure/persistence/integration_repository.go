package persistence

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormIntegrationRepository implements IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// FindByID finds an integration by its ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	var inst integration.Integration
	if err := r.db.WithContext(ctx).First(&inst, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inst, nil
}

// FindActive returns all active integrations ordered by creation time
func (r *GormIntegrationRepository) FindActive(ctx context.Context) ([]*integration.Integration, error) {
	var instances []*integration.Integration
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

// Save creates or updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, inst *integration.Integration) error {
	return r.db.WithContext(ctx).Save(inst).Error
}

// Ensure GormIntegrationRepository implements IntegrationRepository
var _ integration.IntegrationRepository = (*GormIntegrationRepository)(nil)
