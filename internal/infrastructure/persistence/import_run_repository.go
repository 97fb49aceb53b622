package persistence

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/imports"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormImportRunRepository implements ImportRunRepository using GORM
type GormImportRunRepository struct {
	db *gorm.DB
}

// NewGormImportRunRepository creates a new GormImportRunRepository
func NewGormImportRunRepository(db *gorm.DB) *GormImportRunRepository {
	return &GormImportRunRepository{db: db}
}

// FindByID finds a run by its ID
func (r *GormImportRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*imports.ImportRun, error) {
	var run imports.ImportRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// Save creates or updates a run
func (r *GormImportRunRepository) Save(ctx context.Context, run *imports.ImportRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// Ensure GormImportRunRepository implements ImportRunRepository
var _ imports.ImportRunRepository = (*GormImportRunRepository)(nil)
