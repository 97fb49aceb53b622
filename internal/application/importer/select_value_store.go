package importer

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/imports"
	"github.com/channelsync/backend/internal/domain/shared"
)

// selectValueRecord adapts a select value plus its translation in the
// store's language. The translation carries the only mutable attribute.
type selectValueRecord struct {
	property    *catalog.Property
	translation *catalog.PropertySelectValueTranslation
}

func (r *selectValueRecord) Attribute(name string) (any, bool) {
	switch name {
	case "property":
		return r.property.InternalName, true
	case "value":
		return r.translation.Value, true
	}
	return nil, false
}

func (r *selectValueRecord) SetAttribute(name string, value any) error {
	switch name {
	case "property":
		return fmt.Errorf("property is the record identity and cannot change")
	case "value":
		text, ok := value.(string)
		if !ok {
			return fmt.Errorf("value must be a string")
		}
		if text == "" {
			return catalog.ErrInvalidValue
		}
		r.translation.Value = text
		r.translation.Touch()
	default:
		return fmt.Errorf("unknown attribute %q", name)
	}
	return nil
}

// SelectValueStore reconciles imported select values. A select value has no
// identity of its own; it is found through its property and its translated
// display name in the store's language, so the translation lookup is the
// find path rather than an optional pre-resolution.
type SelectValueStore struct {
	properties   catalog.PropertyRepository
	selectValues catalog.SelectValueRepository
	language     string
}

// NewSelectValueStore creates a select value store bound to one language
func NewSelectValueStore(properties catalog.PropertyRepository, selectValues catalog.SelectValueRepository, language string) (*SelectValueStore, error) {
	if language == "" {
		return nil, fmt.Errorf("%w: language is required", shared.ErrInvalidInput)
	}
	return &SelectValueStore{
		properties:   properties,
		selectValues: selectValues,
		language:     language,
	}, nil
}

// Find resolves the select value through its property and translated name
func (s *SelectValueStore) Find(ctx context.Context, run *imports.ImportRun, identifiers map[string]any) (Record, error) {
	propertyName, err := identifierString(identifiers, "property")
	if err != nil {
		return nil, err
	}
	value, err := identifierString(identifiers, "value")
	if err != nil {
		return nil, err
	}

	property, err := s.properties.FindByInternalName(ctx, run.TenantID, propertyName)
	if err != nil {
		return nil, err
	}
	translation, err := s.selectValues.FindTranslationByValue(ctx, run.TenantID, property.ID, s.language, value)
	if err != nil {
		return nil, err
	}
	return &selectValueRecord{property: property, translation: translation}, nil
}

// Create builds the select value, its translation, and the property itself
// when the feed names one the tenant does not have yet
func (s *SelectValueStore) Create(ctx context.Context, run *imports.ImportRun, identifiers map[string]any) (Record, error) {
	propertyName, err := identifierString(identifiers, "property")
	if err != nil {
		return nil, err
	}
	value, err := identifierString(identifiers, "value")
	if err != nil {
		return nil, err
	}

	property, err := s.properties.FindByInternalName(ctx, run.TenantID, propertyName)
	if shared.IsNotFound(err) {
		property, err = catalog.NewProperty(run.TenantID, propertyName)
		if err != nil {
			return nil, err
		}
		if err := s.properties.Save(ctx, property); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	selectValue := catalog.NewPropertySelectValue(run.TenantID, property.ID)
	if err := s.selectValues.Save(ctx, selectValue); err != nil {
		return nil, err
	}
	translation, err := catalog.NewPropertySelectValueTranslation(run.TenantID, selectValue, s.language, value)
	if err != nil {
		return nil, err
	}
	if err := s.selectValues.SaveTranslation(ctx, translation); err != nil {
		return nil, err
	}
	return &selectValueRecord{property: property, translation: translation}, nil
}

// Save persists the translation
func (s *SelectValueStore) Save(ctx context.Context, record Record) error {
	sr, ok := record.(*selectValueRecord)
	if !ok {
		return fmt.Errorf("%w: record is not a select value", shared.ErrInvalidInput)
	}
	return s.selectValues.SaveTranslation(ctx, sr.translation)
}
