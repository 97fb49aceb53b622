package persistence

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRemoteProductRepository implements RemoteProductRepository using GORM
type GormRemoteProductRepository struct {
	db *gorm.DB
}

// NewGormRemoteProductRepository creates a new GormRemoteProductRepository
func NewGormRemoteProductRepository(db *gorm.DB) *GormRemoteProductRepository {
	return &GormRemoteProductRepository{db: db}
}

// FindByID finds a mirror by its ID
func (r *GormRemoteProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.RemoteProduct, error) {
	var product sync.RemoteProduct
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindByLocalInstance finds the mirror for a local product on an integration
func (r *GormRemoteProductRepository) FindByLocalInstance(ctx context.Context, integrationID, localProductID uuid.UUID) (*sync.RemoteProduct, error) {
	var product sync.RemoteProduct
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND local_instance_id = ?", integrationID, localProductID).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindVariations returns all variation mirrors under a parent mirror
func (r *GormRemoteProductRepository) FindVariations(ctx context.Context, remoteParentID uuid.UUID) ([]*sync.RemoteProduct, error) {
	var products []*sync.RemoteProduct
	if err := r.db.WithContext(ctx).
		Where("remote_parent_product_id = ? AND is_variation = ?", remoteParentID, true).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Save creates or updates a mirror row
func (r *GormRemoteProductRepository) Save(ctx context.Context, product *sync.RemoteProduct) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Ensure GormRemoteProductRepository implements RemoteProductRepository
var _ sync.RemoteProductRepository = (*GormRemoteProductRepository)(nil)
