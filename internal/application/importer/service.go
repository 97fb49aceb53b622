package importer

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/imports"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultImportLanguage is assumed for feeds that carry no language code
const DefaultImportLanguage = "en"

// ProductItem is one channel-normalized product row in an import batch.
// Rows with a parent SKU run through the variation pipeline.
type ProductItem struct {
	SKU        string
	Name       string
	Active     *bool
	ParentSKU  string
	ParentName string
}

// SelectValueItem is one property value row in an import batch
type SelectValueItem struct {
	Property string
	Value    string
	Language string
}

// Service runs import batches against a pending run. Each submission
// processes the whole batch and then finishes the run, so a run is a
// one-shot unit of work: item-level defects are counted on the run and
// processing continues, only a broken run itself aborts.
type Service struct {
	runs         imports.ImportRunRepository
	products     catalog.ProductRepository
	properties   catalog.PropertyRepository
	selectValues catalog.SelectValueRepository
	mirrors      sync.RemoteProductRepository
	logger       *zap.Logger
}

// NewService creates the import service
func NewService(
	runs imports.ImportRunRepository,
	products catalog.ProductRepository,
	properties catalog.PropertyRepository,
	selectValues catalog.SelectValueRepository,
	mirrors sync.RemoteProductRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		runs:         runs,
		products:     products,
		properties:   properties,
		selectValues: selectValues,
		mirrors:      mirrors,
		logger:       logger,
	}
}

// ImportProducts processes a batch of product rows under the given run
func (s *Service) ImportProducts(ctx context.Context, runID uuid.UUID, items []ProductItem) (*imports.ImportRun, error) {
	run, err := s.claimRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.ParentSKU != "" {
			s.importVariation(ctx, run, item)
			continue
		}
		s.importSimpleProduct(ctx, run, item)
	}

	return s.finishRun(ctx, run)
}

// ImportSelectValues processes a batch of property value rows under the
// given run
func (s *Service) ImportSelectValues(ctx context.Context, runID uuid.UUID, items []SelectValueItem) (*imports.ImportRun, error) {
	run, err := s.claimRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	// One store per language keeps the lookup scope of each row honest.
	stores := make(map[string]*SelectValueStore)
	for _, item := range items {
		language := item.Language
		if language == "" {
			language = DefaultImportLanguage
		}
		store, ok := stores[language]
		if !ok {
			store, err = NewSelectValueStore(s.properties, s.selectValues, language)
			if err != nil {
				run.RecordError(err.Error())
				continue
			}
			stores[language] = store
		}

		operation, err := NewOperation(OperationConfig{
			IdentifierFields: []string{"property", "value"},
		}, store, s.logger)
		if err != nil {
			run.RecordError(err.Error())
			continue
		}

		structured := map[string]any{
			"property": item.Property,
			"value":    item.Value,
		}
		if _, err := operation.Run(ctx, run, structured); err != nil {
			s.logger.Warn("select value import item failed",
				zap.String("run_id", run.ID.String()),
				zap.String("property", item.Property),
				zap.Error(err),
			)
		}
	}

	return s.finishRun(ctx, run)
}

func (s *Service) importSimpleProduct(ctx context.Context, run *imports.ImportRun, item ProductItem) {
	operation, err := NewOperation(OperationConfig{
		IdentifierFields: []string{"sku"},
		Mirror:           NewProductMirrorFactory(s.mirrors),
	}, NewProductStore(s.products), s.logger)
	if err != nil {
		run.RecordError(err.Error())
		return
	}

	structured := map[string]any{"sku": item.SKU}
	if item.Name != "" {
		structured["name"] = item.Name
	}
	if item.Active != nil {
		structured["active"] = *item.Active
	}
	if _, err := operation.Run(ctx, run, structured); err != nil {
		s.logger.Warn("product import item failed",
			zap.String("run_id", run.ID.String()),
			zap.String("sku", item.SKU),
			zap.Error(err),
		)
	}
}

func (s *Service) importVariation(ctx context.Context, run *imports.ImportRun, item ProductItem) {
	operation, err := NewVariationOperation(VariationPayload{
		ParentSKU:     item.ParentSKU,
		ParentName:    item.ParentName,
		VariationSKU:  item.SKU,
		VariationName: item.Name,
	}, s.products, s.logger)
	if err != nil {
		run.RecordError(err.Error())
		return
	}
	if _, err := operation.Run(ctx, run); err != nil {
		s.logger.Warn("variation import item failed",
			zap.String("run_id", run.ID.String()),
			zap.String("sku", item.SKU),
			zap.Error(err),
		)
	}
}

// claimRun loads the run and moves it to running; only pending runs accept
// a batch
func (s *Service) claimRun(ctx context.Context, runID uuid.UUID) (*imports.ImportRun, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != imports.RunStatusPending {
		return nil, fmt.Errorf("%w: import run %s already processed", shared.ErrInvalidInput, runID)
	}
	run.Start()
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("import: starting run: %w", err)
	}
	return run, nil
}

func (s *Service) finishRun(ctx context.Context, run *imports.ImportRun) (*imports.ImportRun, error) {
	if err := run.Complete(); err != nil {
		return nil, err
	}
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("import: finishing run: %w", err)
	}

	s.logger.Info("import run finished",
		zap.String("run_id", run.ID.String()),
		zap.Int("created", run.CreatedCount),
		zap.Int("updated", run.UpdatedCount),
		zap.Int("skipped", run.SkippedCount),
		zap.Int("errors", run.ErrorCount),
	)
	return run, nil
}
