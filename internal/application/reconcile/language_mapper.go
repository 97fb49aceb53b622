package reconcile

import (
	"context"

	"github.com/google/uuid"
)

// StaticLanguageMapper serves a fixed language mapping, optionally
// overridden per integration. Channels that expose their store languages
// via API can replace it with a live implementation.
type StaticLanguageMapper struct {
	defaults  []LanguageMapping
	overrides map[uuid.UUID][]LanguageMapping
}

// NewStaticLanguageMapper creates a mapper that answers every integration
// with the given default mappings
func NewStaticLanguageMapper(defaults []LanguageMapping) *StaticLanguageMapper {
	return &StaticLanguageMapper{
		defaults:  defaults,
		overrides: make(map[uuid.UUID][]LanguageMapping),
	}
}

var _ LanguageMapper = (*StaticLanguageMapper)(nil)

// SetOverride replaces the mappings for one integration
func (m *StaticLanguageMapper) SetOverride(integrationID uuid.UUID, mappings []LanguageMapping) {
	m.overrides[integrationID] = mappings
}

// Mappings resolves the remote-language mappings of a channel
func (m *StaticLanguageMapper) Mappings(_ context.Context, integrationID uuid.UUID) ([]LanguageMapping, error) {
	if mappings, ok := m.overrides[integrationID]; ok {
		return mappings, nil
	}
	return m.defaults, nil
}
