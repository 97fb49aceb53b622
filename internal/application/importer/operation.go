package importer

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/channelsync/backend/internal/domain/imports"
	"github.com/channelsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Record is a local entity an import operation reconciles. Implementations
// expose their writable fields by name so the operation can diff incoming
// data against current values without knowing the concrete type.
type Record interface {
	Attribute(name string) (any, bool)
	SetAttribute(name string, value any) error
}

// Store finds, creates and persists records of one entity type, always
// scoped by tenant
type Store interface {
	Find(ctx context.Context, run *imports.ImportRun, identifiers map[string]any) (Record, error)
	Create(ctx context.Context, run *imports.ImportRun, identifiers map[string]any) (Record, error)
	Save(ctx context.Context, record Record) error
}

// TranslationResolver resolves a record through an alternate identity path,
// for entities whose stable identity lives in a translation table rather
// than the record itself
type TranslationResolver interface {
	Resolve(ctx context.Context, run *imports.ImportRun, structured map[string]any) (Record, error)
}

// MirrorFactory creates the remote mirror row accompanying an imported
// record, attached to the parent run's integration
type MirrorFactory interface {
	CreateMirror(ctx context.Context, run *imports.ImportRun, record Record, structured map[string]any) error
}

// OperationConfig drives one import operation
type OperationConfig struct {
	// IdentifierFields are paths into the structured payload that identify
	// the record; nested paths use dots ("translation.sku").
	IdentifierFields []string

	// Translations, when set, is consulted before the identifier lookup.
	Translations TranslationResolver

	// Mirror, when set, creates a mirror row after reconciliation.
	Mirror MirrorFactory

	// AllowCreate overrides the run's UpdateOnly flag when true. Variation
	// pipelines set it for parents once any child is known locally.
	AllowCreate bool
}

// Outcome reports what one Run did
type Outcome struct {
	Record  Record
	Created bool
	Changed bool
	Skipped bool
}

// Operation reconciles one channel-normalized payload into a local record
// with get-or-create-and-diff semantics: it only writes when at least one
// field actually changed, so re-importing identical data is a no-op.
type Operation struct {
	config OperationConfig
	store  Store
	logger *zap.Logger
}

// NewOperation validates the configuration and creates the operation
func NewOperation(config OperationConfig, store Store, logger *zap.Logger) (*Operation, error) {
	if len(config.IdentifierFields) == 0 {
		return nil, fmt.Errorf("%w: identifier fields are required", shared.ErrInvalidInput)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", shared.ErrInvalidInput)
	}
	return &Operation{config: config, store: store, logger: logger}, nil
}

// Run reconciles structured data against the local record identified by the
// configured fields, updating the parent run's counters as it goes
func (o *Operation) Run(ctx context.Context, run *imports.ImportRun, structured map[string]any) (*Outcome, error) {
	identifiers, err := o.extractIdentifiers(structured)
	if err != nil {
		run.RecordError(err.Error())
		return nil, err
	}

	record, created, err := o.resolve(ctx, run, structured, identifiers)
	if err != nil {
		run.RecordError(err.Error())
		return nil, err
	}
	if record == nil {
		// UpdateOnly run and no existing record to update.
		run.RecordSkipped()
		return &Outcome{Skipped: true}, nil
	}

	changed, err := o.applyDiff(record, structured)
	if err != nil {
		run.RecordError(err.Error())
		return nil, err
	}

	if created {
		run.RecordCreated()
	}
	if changed {
		if err := o.store.Save(ctx, record); err != nil {
			run.RecordError(err.Error())
			return nil, fmt.Errorf("import: saving record: %w", err)
		}
		if !created {
			run.RecordUpdated()
		}
	} else if !created {
		run.RecordSkipped()
	}

	if o.config.Mirror != nil {
		if err := o.config.Mirror.CreateMirror(ctx, run, record, structured); err != nil {
			run.RecordError(err.Error())
			return nil, fmt.Errorf("import: creating mirror row: %w", err)
		}
	}

	return &Outcome{Record: record, Created: created, Changed: changed}, nil
}

// resolve finds or creates the target record. The translation path wins
// when configured; creation is suppressed on update-only runs unless the
// operation explicitly allows it.
func (o *Operation) resolve(ctx context.Context, run *imports.ImportRun, structured, identifiers map[string]any) (Record, bool, error) {
	if o.config.Translations != nil {
		record, err := o.config.Translations.Resolve(ctx, run, structured)
		if err == nil {
			return record, false, nil
		}
		if !shared.IsNotFound(err) {
			return nil, false, fmt.Errorf("import: resolving translation identity: %w", err)
		}
	}

	record, err := o.store.Find(ctx, run, identifiers)
	if err == nil {
		return record, false, nil
	}
	if !shared.IsNotFound(err) {
		return nil, false, fmt.Errorf("import: looking up record: %w", err)
	}

	if run.UpdateOnly && !o.config.AllowCreate {
		return nil, false, nil
	}

	record, err = o.store.Create(ctx, run, identifiers)
	if err != nil {
		return nil, false, fmt.Errorf("import: creating record: %w", err)
	}
	return record, true, nil
}

// extractIdentifiers builds the lookup values from the configured paths;
// a missing identifier is a payload defect, not a silent skip
func (o *Operation) extractIdentifiers(structured map[string]any) (map[string]any, error) {
	identifiers := make(map[string]any, len(o.config.IdentifierFields))
	for _, path := range o.config.IdentifierFields {
		value, ok := lookupPath(structured, path)
		if !ok {
			return nil, fmt.Errorf("%w: identifier %q missing from payload", shared.ErrInvalidInput, path)
		}
		identifiers[path] = value
	}
	return identifiers, nil
}

// applyDiff writes every changed top-level field onto the record and
// reports whether anything changed at all
func (o *Operation) applyDiff(record Record, structured map[string]any) (bool, error) {
	changed := false
	for field, incoming := range structured {
		if strings.Contains(field, ".") {
			continue
		}
		current, ok := record.Attribute(field)
		if ok && reflect.DeepEqual(current, incoming) {
			continue
		}
		if !ok {
			// Unknown fields are channel noise, not local attributes.
			continue
		}
		if err := record.SetAttribute(field, incoming); err != nil {
			return false, fmt.Errorf("%w: field %q: %v", shared.ErrInvalidInput, field, err)
		}
		changed = true
	}
	return changed, nil
}

// lookupPath walks a dotted path through nested payload maps
func lookupPath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
