package reconcile

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBatchSize bounds how many unmapped candidates one batch loads;
// reconciliation is memory-bounded, not wall-clock-bounded.
const DefaultBatchSize = 2000

// LanguageMapping links a channel's remote language code to the local one
type LanguageMapping struct {
	Remote string
	Local  string
}

// LanguageMapper resolves the remote-language mappings of a channel
type LanguageMapper interface {
	Mappings(ctx context.Context, integrationID uuid.UUID) ([]LanguageMapping, error)
}

// matchKey scopes a candidate string to its own property: the same label
// under a different property is never a match ("Large" as a size versus
// "Large" as a generic descriptor).
type matchKey struct {
	propertyID uuid.UUID
	value      string
}

// SelectValueMatcher links remotely fetched enumerated values to local
// canonical select values by exact string match, per language, batched for
// large catalogs. Exact match only: a false positive silently corrupts
// product data marketplace-wide, so anything ambiguous or merely similar
// stays unmapped for manual review. Already-mapped candidates are skipped,
// which makes re-runs idempotent and cheap.
type SelectValueMatcher struct {
	integrations integration.IntegrationRepository
	remote       sync.RemoteSelectValueRepository
	local        catalog.SelectValueRepository
	languages    LanguageMapper
	batchSize    int
	logger       *zap.Logger
}

// NewSelectValueMatcher creates a matcher with the given batch size;
// zero means DefaultBatchSize
func NewSelectValueMatcher(
	integrations integration.IntegrationRepository,
	remote sync.RemoteSelectValueRepository,
	local catalog.SelectValueRepository,
	languages LanguageMapper,
	batchSize int,
	logger *zap.Logger,
) *SelectValueMatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SelectValueMatcher{
		integrations: integrations,
		remote:       remote,
		local:        local,
		languages:    languages,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// RunResult summarizes one reconciliation run
type RunResult struct {
	Scanned int
	Mapped  int
}

// Run reconciles every remote language of the integration
func (m *SelectValueMatcher) Run(ctx context.Context, integrationID uuid.UUID) (*RunResult, error) {
	inst, err := m.integrations.FindByID(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: resolving integration: %w", err)
	}

	mappings, err := m.languages.Mappings(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: resolving language mappings: %w", err)
	}

	result := &RunResult{}
	for _, mapping := range mappings {
		if err := m.runLanguage(ctx, inst, mapping, result); err != nil {
			return result, err
		}
	}

	m.logger.Info("select value reconciliation finished",
		zap.String("integration_id", inst.ID.String()),
		zap.Int("scanned", result.Scanned),
		zap.Int("mapped", result.Mapped),
	)
	return result, nil
}

// runLanguage streams the unmapped candidates of one language in batches
func (m *SelectValueMatcher) runLanguage(ctx context.Context, inst *integration.Integration, mapping LanguageMapping, result *RunResult) error {
	offset := 0
	for {
		batch, err := m.remote.FindUnmappedBatch(ctx, inst.ID, mapping.Remote, offset, m.batchSize)
		if err != nil {
			return fmt.Errorf("reconcile: loading candidate batch: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		mapped, err := m.matchBatch(ctx, inst.TenantID, mapping.Local, batch)
		if err != nil {
			return err
		}

		result.Scanned += len(batch)
		result.Mapped += mapped

		// Mapped rows leave the unmapped filter, shifting the
		// remaining rows down; advance past the unmatched only.
		offset += len(batch) - mapped
		if len(batch) < m.batchSize {
			return nil
		}
	}
}

// matchBatch resolves one batch of candidates against local translations
func (m *SelectValueMatcher) matchBatch(ctx context.Context, tenantID uuid.UUID, localLanguage string, batch []*sync.RemoteSelectValue) (int, error) {
	values := make([]string, 0, len(batch)*2)
	propertySet := make(map[uuid.UUID]bool)
	for _, candidate := range batch {
		values = append(values, catalog.NormalizeMatchValue(candidate.RemoteName))
		if candidate.TranslatedName != "" {
			values = append(values, catalog.NormalizeMatchValue(candidate.TranslatedName))
		}
		propertySet[candidate.LocalPropertyID] = true
	}
	propertyIDs := make([]uuid.UUID, 0, len(propertySet))
	for id := range propertySet {
		propertyIDs = append(propertyIDs, id)
	}

	matches, err := m.local.FindTranslationMatches(ctx, tenantID, localLanguage, values, propertyIDs)
	if err != nil {
		return 0, fmt.Errorf("reconcile: querying local translations: %w", err)
	}

	lookup := make(map[matchKey]uuid.UUID, len(matches))
	ambiguous := make(map[matchKey]bool)
	for _, match := range matches {
		key := matchKey{propertyID: match.PropertyID, value: catalog.NormalizeMatchValue(match.Value)}
		if existing, ok := lookup[key]; ok && existing != match.SelectValueID {
			ambiguous[key] = true
			continue
		}
		lookup[key] = match.SelectValueID
	}

	var toSave []*sync.RemoteSelectValue
	for _, candidate := range batch {
		if candidate.IsMapped() {
			continue
		}
		localID, key, ok := m.resolve(lookup, ambiguous, candidate)
		if !ok {
			continue
		}
		if ambiguous[key] {
			m.logger.Info("ambiguous select value left unmapped",
				zap.String("remote_name", candidate.RemoteName),
				zap.String("property_id", candidate.LocalPropertyID.String()),
			)
			continue
		}
		candidate.MapTo(localID)
		toSave = append(toSave, candidate)
	}

	if len(toSave) > 0 {
		if err := m.remote.SaveBatch(ctx, toSave); err != nil {
			return 0, fmt.Errorf("reconcile: saving mapped values: %w", err)
		}
	}
	return len(toSave), nil
}

// resolve tries the candidate strings in order, raw remote name first and
// translated name second, always within the candidate's own property
func (m *SelectValueMatcher) resolve(lookup map[matchKey]uuid.UUID, ambiguous map[matchKey]bool, candidate *sync.RemoteSelectValue) (uuid.UUID, matchKey, bool) {
	candidates := []string{candidate.RemoteName}
	if candidate.TranslatedName != "" {
		candidates = append(candidates, candidate.TranslatedName)
	}
	for _, raw := range candidates {
		key := matchKey{
			propertyID: candidate.LocalPropertyID,
			value:      catalog.NormalizeMatchValue(raw),
		}
		if localID, ok := lookup[key]; ok {
			return localID, key, true
		}
		if ambiguous[key] {
			return uuid.Nil, key, true
		}
	}
	return uuid.Nil, matchKey{}, false
}
