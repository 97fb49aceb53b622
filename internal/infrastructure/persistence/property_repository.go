package persistence

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPropertyRepository implements PropertyRepository using GORM
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewGormPropertyRepository creates a new GormPropertyRepository
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

// FindByID finds a property by its ID
func (r *GormPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Property, error) {
	var property catalog.Property
	if err := r.db.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &property, nil
}

// FindByInternalName finds a property by tenant and internal name
func (r *GormPropertyRepository) FindByInternalName(ctx context.Context, tenantID uuid.UUID, name string) (*catalog.Property, error) {
	var property catalog.Property
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND internal_name = ?", tenantID, name).
		First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &property, nil
}

// Save creates or updates a property
func (r *GormPropertyRepository) Save(ctx context.Context, property *catalog.Property) error {
	return r.db.WithContext(ctx).Save(property).Error
}

// Ensure GormPropertyRepository implements PropertyRepository
var _ catalog.PropertyRepository = (*GormPropertyRepository)(nil)

// GormSelectValueRepository implements SelectValueRepository using GORM
type GormSelectValueRepository struct {
	db *gorm.DB
}

// NewGormSelectValueRepository creates a new GormSelectValueRepository
func NewGormSelectValueRepository(db *gorm.DB) *GormSelectValueRepository {
	return &GormSelectValueRepository{db: db}
}

// FindByID finds a select value by its ID
func (r *GormSelectValueRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.PropertySelectValue, error) {
	var value catalog.PropertySelectValue
	if err := r.db.WithContext(ctx).First(&value, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &value, nil
}

// Save creates or updates a select value
func (r *GormSelectValueRepository) Save(ctx context.Context, value *catalog.PropertySelectValue) error {
	return r.db.WithContext(ctx).Save(value).Error
}

// SaveTranslation creates or updates a translation
func (r *GormSelectValueRepository) SaveTranslation(ctx context.Context, translation *catalog.PropertySelectValueTranslation) error {
	return r.db.WithContext(ctx).Save(translation).Error
}

// FindTranslationMatches bulk-queries translations for reconciliation.
// Normalization happens in SQL so stored values keep their display casing.
func (r *GormSelectValueRepository) FindTranslationMatches(ctx context.Context, tenantID uuid.UUID, language string, values []string, propertyIDs []uuid.UUID) ([]catalog.TranslationMatch, error) {
	if len(values) == 0 || len(propertyIDs) == 0 {
		return nil, nil
	}

	var matches []catalog.TranslationMatch
	if err := r.db.WithContext(ctx).
		Model(&catalog.PropertySelectValueTranslation{}).
		Select("select_value_id, property_id, value").
		Where("tenant_id = ? AND language = ?", tenantID, language).
		Where("LOWER(TRIM(value)) IN ?", values).
		Where("property_id IN ?", propertyIDs).
		Scan(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

// FindTranslationByValue finds a translation by display name within one property
func (r *GormSelectValueRepository) FindTranslationByValue(ctx context.Context, tenantID, propertyID uuid.UUID, language, value string) (*catalog.PropertySelectValueTranslation, error) {
	var translation catalog.PropertySelectValueTranslation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND property_id = ? AND language = ?", tenantID, propertyID, language).
		Where("LOWER(TRIM(value)) = ?", catalog.NormalizeMatchValue(value)).
		First(&translation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &translation, nil
}

// Ensure GormSelectValueRepository implements SelectValueRepository
var _ catalog.SelectValueRepository = (*GormSelectValueRepository)(nil)
