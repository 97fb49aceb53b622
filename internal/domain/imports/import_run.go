package imports

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	ErrRunNotRunning = errors.New("imports: import run is not running")
)

// RunStatus represents the state of one bulk import run
type RunStatus string

const (
	// RunStatusPending means the run was created but not started
	RunStatusPending RunStatus = "PENDING"
	// RunStatusRunning means items are being processed
	RunStatusRunning RunStatus = "RUNNING"
	// RunStatusCompleted means every item was processed
	RunStatusCompleted RunStatus = "COMPLETED"
	// RunStatusFailed means the run aborted
	RunStatusFailed RunStatus = "FAILED"
)

// ImportRun is one run of a bulk import from a remote catalog. It owns the
// batch of locally created or updated entities plus their mirror rows.
// UpdateOnly controls whether new local entities may be created; variation
// pipelines override it per-parent so partially imported families never get
// orphaned duplicate parents.
type ImportRun struct {
	shared.TenantAggregateRoot
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Status        RunStatus `gorm:"size:20;not null"`
	UpdateOnly    bool      `gorm:"not null;default:false"`
	CreatedCount  int       `gorm:"not null;default:0"`
	UpdatedCount  int       `gorm:"not null;default:0"`
	SkippedCount  int       `gorm:"not null;default:0"`
	ErrorCount    int       `gorm:"not null;default:0"`
	LastError     string    `gorm:"type:text"`
}

// TableName returns the database table name
func (ImportRun) TableName() string {
	return "import_runs"
}

// NewImportRun creates a new pending import run for an integration
func NewImportRun(tenantID, integrationID uuid.UUID, updateOnly bool) *ImportRun {
	return &ImportRun{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		IntegrationID:       integrationID,
		Status:              RunStatusPending,
		UpdateOnly:          updateOnly,
	}
}

// Start marks the run as running
func (r *ImportRun) Start() {
	r.Status = RunStatusRunning
	r.Touch()
}

// Complete marks the run as completed
func (r *ImportRun) Complete() error {
	if r.Status != RunStatusRunning {
		return ErrRunNotRunning
	}
	r.Status = RunStatusCompleted
	r.Touch()
	return nil
}

// Fail marks the run as failed with the final error
func (r *ImportRun) Fail(message string) {
	r.Status = RunStatusFailed
	r.LastError = message
	r.Touch()
}

// RecordCreated counts one locally created entity
func (r *ImportRun) RecordCreated() { r.CreatedCount++ }

// RecordUpdated counts one locally updated entity
func (r *ImportRun) RecordUpdated() { r.UpdatedCount++ }

// RecordSkipped counts one item that produced no local write
func (r *ImportRun) RecordSkipped() { r.SkippedCount++ }

// RecordError counts one item that raised a structural error
func (r *ImportRun) RecordError(message string) {
	r.ErrorCount++
	r.LastError = message
}

// ImportRunRepository defines persistence for import runs
type ImportRunRepository interface {
	// FindByID finds a run by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ImportRun, error)

	// Save creates or updates a run
	Save(ctx context.Context, run *ImportRun) error
}
