package importer

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/imports"
	"github.com/channelsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// VariationPayload identifies one parent/variation pair in a channel feed
type VariationPayload struct {
	ParentSKU     string
	ParentName    string
	VariationSKU  string
	VariationName string
}

// VariationOutcome reports what one variation import did
type VariationOutcome struct {
	Parent           *catalog.Product
	Variation        *catalog.Product
	ParentCreated    bool
	VariationCreated bool
	Skipped          bool
}

// VariationOperation imports one variation together with its configurable
// parent. Update-only runs keep strict semantics for leaf products, but the
// parent is force-created as soon as any child of it already exists
// locally: a half-imported family without its parent is worse than a
// created record on an update-only run.
type VariationOperation struct {
	payload  VariationPayload
	products catalog.ProductRepository
	logger   *zap.Logger
}

// NewVariationOperation validates the payload; a pair with neither a parent
// nor a variation identity is a feed defect, not a silent skip
func NewVariationOperation(payload VariationPayload, products catalog.ProductRepository, logger *zap.Logger) (*VariationOperation, error) {
	if payload.ParentSKU == "" && payload.VariationSKU == "" {
		return nil, fmt.Errorf("%w: parent_sku and variation_sku cannot both be empty", shared.ErrInvalidInput)
	}
	if payload.ParentSKU == "" {
		return nil, fmt.Errorf("%w: parent_sku is required", shared.ErrInvalidInput)
	}
	if payload.VariationSKU == "" {
		return nil, fmt.Errorf("%w: variation_sku is required", shared.ErrInvalidInput)
	}
	return &VariationOperation{payload: payload, products: products, logger: logger}, nil
}

// Run resolves the parent and the variation and links them
func (o *VariationOperation) Run(ctx context.Context, run *imports.ImportRun) (*VariationOutcome, error) {
	outcome := &VariationOutcome{}

	variation, err := o.products.FindBySKU(ctx, run.TenantID, o.payload.VariationSKU)
	if err != nil && !shared.IsNotFound(err) {
		run.RecordError(err.Error())
		return nil, fmt.Errorf("import: looking up variation: %w", err)
	}
	childKnown := variation != nil && err == nil

	parent, parentCreated, err := o.resolveParent(ctx, run, childKnown)
	if err != nil {
		run.RecordError(err.Error())
		return nil, err
	}
	if parent == nil {
		run.RecordSkipped()
		outcome.Skipped = true
		return outcome, nil
	}
	outcome.Parent = parent
	outcome.ParentCreated = parentCreated
	if parentCreated {
		run.RecordCreated()
	}

	if !childKnown {
		if run.UpdateOnly {
			// Leaf products keep strict update-only semantics.
			run.RecordSkipped()
			outcome.Skipped = true
			return outcome, nil
		}
		variation, err = catalog.NewProduct(run.TenantID, o.payload.VariationSKU, o.payload.VariationName, catalog.ProductTypeVariation)
		if err != nil {
			run.RecordError(err.Error())
			return nil, fmt.Errorf("import: building variation: %w", err)
		}
		outcome.VariationCreated = true
	}

	changed := outcome.VariationCreated
	if variation.ParentID == nil || *variation.ParentID != parent.ID {
		if err := variation.AttachToParent(parent); err != nil {
			run.RecordError(err.Error())
			return nil, fmt.Errorf("import: linking variation: %w", err)
		}
		changed = true
	}
	if o.payload.VariationName != "" && variation.Name != o.payload.VariationName {
		variation.Name = o.payload.VariationName
		variation.Touch()
		changed = true
	}

	if changed {
		if err := o.products.Save(ctx, variation); err != nil {
			run.RecordError(err.Error())
			return nil, fmt.Errorf("import: saving variation: %w", err)
		}
	}

	switch {
	case outcome.VariationCreated:
		run.RecordCreated()
	case changed:
		run.RecordUpdated()
	default:
		run.RecordSkipped()
	}

	outcome.Variation = variation
	return outcome, nil
}

// resolveParent finds or creates the configurable parent. childKnown lifts
// the update-only restriction for the parent only.
func (o *VariationOperation) resolveParent(ctx context.Context, run *imports.ImportRun, childKnown bool) (*catalog.Product, bool, error) {
	parent, err := o.products.FindBySKU(ctx, run.TenantID, o.payload.ParentSKU)
	if err == nil {
		return parent, false, nil
	}
	if !shared.IsNotFound(err) {
		return nil, false, fmt.Errorf("import: looking up parent: %w", err)
	}

	if run.UpdateOnly && !childKnown {
		return nil, false, nil
	}

	name := o.payload.ParentName
	if name == "" {
		name = o.payload.ParentSKU
	}
	parent, err = catalog.NewProduct(run.TenantID, o.payload.ParentSKU, name, catalog.ProductTypeConfigurable)
	if err != nil {
		return nil, false, fmt.Errorf("import: building parent: %w", err)
	}
	if err := o.products.Save(ctx, parent); err != nil {
		return nil, false, fmt.Errorf("import: saving parent: %w", err)
	}

	if run.UpdateOnly {
		o.logger.Info("update-only overridden for configurable parent",
			zap.String("parent_sku", o.payload.ParentSKU),
			zap.String("variation_sku", o.payload.VariationSKU),
		)
	}
	return parent, true, nil
}
