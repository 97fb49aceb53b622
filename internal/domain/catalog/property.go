package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	ErrInvalidPropertyName = errors.New("catalog: property name must not be empty")
	ErrInvalidLanguage     = errors.New("catalog: language code must not be empty")
	ErrInvalidValue        = errors.New("catalog: translation value must not be empty")
)

// Property is a local product attribute definition, e.g. "Color" or "Size".
// Select-type properties enumerate their allowed values.
type Property struct {
	shared.TenantAggregateRoot
	InternalName string `gorm:"size:255;not null;uniqueIndex:idx_properties_tenant_name"`
	IsSelect     bool   `gorm:"not null;default:true"`
}

// TableName returns the database table name
func (Property) TableName() string {
	return "properties"
}

// NewProperty creates a new property definition
func NewProperty(tenantID uuid.UUID, internalName string) (*Property, error) {
	if internalName == "" {
		return nil, ErrInvalidPropertyName
	}
	return &Property{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InternalName:        internalName,
		IsSelect:            true,
	}, nil
}

// PropertySelectValue is one canonical enumerated value of a select
// property. Its display names live in per-language translations.
type PropertySelectValue struct {
	shared.TenantEntity
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the database table name
func (PropertySelectValue) TableName() string {
	return "property_select_values"
}

// NewPropertySelectValue creates a new select value under a property
func NewPropertySelectValue(tenantID, propertyID uuid.UUID) *PropertySelectValue {
	return &PropertySelectValue{
		TenantEntity: shared.NewTenantEntity(tenantID),
		PropertyID:   propertyID,
	}
}

// PropertySelectValueTranslation is the display name of a select value in
// one language. Reconciliation matches remote strings against these rows.
type PropertySelectValueTranslation struct {
	shared.TenantEntity
	SelectValueID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_psv_translations_language"`
	PropertyID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Language      string    `gorm:"size:12;not null;uniqueIndex:idx_psv_translations_language"`
	Value         string    `gorm:"size:255;not null;index"`
}

// TableName returns the database table name
func (PropertySelectValueTranslation) TableName() string {
	return "property_select_value_translations"
}

// NewPropertySelectValueTranslation creates a translation row
func NewPropertySelectValueTranslation(tenantID uuid.UUID, value *PropertySelectValue, language, text string) (*PropertySelectValueTranslation, error) {
	if language == "" {
		return nil, ErrInvalidLanguage
	}
	if text == "" {
		return nil, ErrInvalidValue
	}
	return &PropertySelectValueTranslation{
		TenantEntity:  shared.NewTenantEntity(tenantID),
		SelectValueID: value.ID,
		PropertyID:    value.PropertyID,
		Language:      language,
		Value:         text,
	}, nil
}

// NormalizeMatchValue canonicalizes a string for exact-match comparison:
// surrounding whitespace stripped, case folded. No fuzzy matching beyond
// this; a wrong automatic mapping silently corrupts catalog data, so
// unmapped-for-review beats a false positive.
func NormalizeMatchValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TranslationMatch identifies a translation hit during reconciliation
type TranslationMatch struct {
	SelectValueID uuid.UUID
	PropertyID    uuid.UUID
	Value         string
}

// PropertyRepository defines persistence for properties
type PropertyRepository interface {
	// FindByID finds a property by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Property, error)

	// FindByInternalName finds a property by tenant and internal name
	FindByInternalName(ctx context.Context, tenantID uuid.UUID, name string) (*Property, error)

	// Save creates or updates a property
	Save(ctx context.Context, property *Property) error
}

// SelectValueRepository defines persistence for select values and their
// translations
type SelectValueRepository interface {
	// FindByID finds a select value by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*PropertySelectValue, error)

	// Save creates or updates a select value
	Save(ctx context.Context, value *PropertySelectValue) error

	// SaveTranslation creates or updates a translation
	SaveTranslation(ctx context.Context, translation *PropertySelectValueTranslation) error

	// FindTranslationMatches bulk-queries translations for reconciliation:
	// language fixed, value IN values, property_id IN propertyIDs.
	// Values are matched in normalized form.
	FindTranslationMatches(ctx context.Context, tenantID uuid.UUID, language string, values []string, propertyIDs []uuid.UUID) ([]TranslationMatch, error)

	// FindTranslationByValue finds a select value by translated display
	// name within one property, used as the alternate identity path
	// during imports
	FindTranslationByValue(ctx context.Context, tenantID, propertyID uuid.UUID, language, value string) (*PropertySelectValueTranslation, error)
}
