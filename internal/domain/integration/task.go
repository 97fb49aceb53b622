package integration

import (
	"context"
	"time"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// TaskStatus
// ---------------------------------------------------------------------------

// TaskStatus represents the lifecycle state of a queued task
type TaskStatus string

const (
	// TaskStatusPending means the task waits for rate budget
	TaskStatusPending TaskStatus = "PENDING"
	// TaskStatusProcessing means the task was admitted and is executing
	TaskStatusProcessing TaskStatus = "PROCESSING"
	// TaskStatusSkipped means the owning integration went inactive before dispatch
	TaskStatusSkipped TaskStatus = "SKIPPED"
	// TaskStatusSuccess means the task callable returned without error
	TaskStatusSuccess TaskStatus = "SUCCESS"
	// TaskStatusFailed means the task callable raised an error
	TaskStatusFailed TaskStatus = "FAILED"
)

// DefaultTaskPriority is used when neither the caller nor the task
// registration specify a priority.
const DefaultTaskPriority = 10

// ---------------------------------------------------------------------------
// Task Entity
// ---------------------------------------------------------------------------

// Task is one durable unit of deferred, rate-limited remote work for an
// integration. Rows are the authoritative queue representation: any process
// can resume after a crash by scanning PENDING rows. Tasks are never deleted,
// only moved to terminal states, so failures stay visible for operator retry.
type Task struct {
	shared.TenantEntity
	IntegrationID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_tasks_integration_status"`
	TaskName       string     `gorm:"size:255;not null"`
	TaskArgs       []byte     `gorm:"type:jsonb"`
	Status         TaskStatus `gorm:"size:20;not null;index:idx_tasks_integration_status"`
	Priority       int        `gorm:"not null"`
	RemoteRequests int        `gorm:"not null;default:1"`
	SentToQueueAt  time.Time  `gorm:"not null;index"`
	Retry          int        `gorm:"not null;default:0"`
	ErrorMessage   string     `gorm:"type:text"`
	ErrorTraceback string     `gorm:"type:text"`
	ErrorHistory   string     `gorm:"type:text"`
}

// TableName returns the database table name
func (Task) TableName() string {
	return "integration_tasks"
}

// NewTask creates a new queue task in PENDING state
func NewTask(tenantID, integrationID uuid.UUID, taskName string, taskArgs []byte, remoteRequests, priority int) (*Task, error) {
	if integrationID == uuid.Nil {
		return nil, ErrIntegrationNotFound
	}
	if remoteRequests <= 0 {
		return nil, ErrInvalidRemoteRequests
	}

	return &Task{
		TenantEntity:   shared.NewTenantEntity(tenantID),
		IntegrationID:  integrationID,
		TaskName:       taskName,
		TaskArgs:       taskArgs,
		Status:         TaskStatusPending,
		Priority:       priority,
		RemoteRequests: remoteRequests,
		SentToQueueAt:  time.Now(),
	}, nil
}

// IsTerminal returns true once the task reached a final state
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case TaskStatusSkipped, TaskStatusSuccess, TaskStatusFailed:
		return true
	}
	return false
}

// MarkProcessing transitions the task to PROCESSING
func (t *Task) MarkProcessing() error {
	if t.Status != TaskStatusPending {
		return shared.ErrInvalidState
	}
	t.Status = TaskStatusProcessing
	t.Touch()
	return nil
}

// MarkSkipped marks the task as skipped because its integration is inactive
func (t *Task) MarkSkipped() error {
	if t.Status != TaskStatusPending {
		return shared.ErrInvalidState
	}
	t.Status = TaskStatusSkipped
	t.Touch()
	return nil
}

// MarkSucceeded records a successful dispatch
func (t *Task) MarkSucceeded() {
	t.Status = TaskStatusSuccess
	t.ErrorMessage = ""
	t.ErrorTraceback = ""
	t.Touch()
}

// MarkFailed records a failed dispatch with the error message and stack.
// The retry counter is left untouched: retries are operator-triggered.
func (t *Task) MarkFailed(message, traceback string) {
	t.Status = TaskStatusFailed
	t.ErrorMessage = message
	t.ErrorTraceback = traceback
	t.Touch()
}

// PrepareRetry moves a failed task back to PENDING for an operator retry,
// archiving the previous error into the history.
func (t *Task) PrepareRetry() error {
	if t.Status != TaskStatusFailed {
		return ErrTaskNotRetryable
	}
	if t.ErrorMessage != "" {
		if t.ErrorHistory != "" {
			t.ErrorHistory += "\n---\n"
		}
		t.ErrorHistory += t.ErrorMessage
	}
	t.Status = TaskStatusPending
	t.ErrorMessage = ""
	t.ErrorTraceback = ""
	t.Retry++
	t.Touch()
	return nil
}

// ---------------------------------------------------------------------------
// TaskRepository Interface
// ---------------------------------------------------------------------------

// TaskRepository defines persistence for queue tasks.
// Query semantics match the admission rules: "in flight" means
// status IN (PENDING, PROCESSING), and pending drain order is
// priority descending, then enqueue time ascending.
type TaskRepository interface {
	// Save creates a task row
	Save(ctx context.Context, task *Task) error

	// Update persists task state changes
	Update(ctx context.Context, task *Task) error

	// FindByID finds a task by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)

	// SumInFlightCost sums RemoteRequests over PENDING and PROCESSING
	// tasks of one integration
	SumInFlightCost(ctx context.Context, integrationID uuid.UUID) (int, error)

	// SumProcessingCost sums RemoteRequests over PROCESSING tasks only;
	// the sweep uses it to re-evaluate freed budget
	SumProcessingCost(ctx context.Context, integrationID uuid.UUID) (int, error)

	// IntegrationIDsWithPending returns the distinct integrations that
	// currently have PENDING tasks
	IntegrationIDsWithPending(ctx context.Context) ([]uuid.UUID, error)

	// FindPending returns PENDING tasks for an integration ordered by
	// priority descending then SentToQueueAt ascending
	FindPending(ctx context.Context, integrationID uuid.UUID, limit int) ([]*Task, error)

	// MarkAllPendingSkipped bulk-marks every PENDING task of an
	// integration as SKIPPED and returns the affected count
	MarkAllPendingSkipped(ctx context.Context, integrationID uuid.UUID) (int64, error)

	// FindByStatus lists tasks in a given status with pagination,
	// newest first
	FindByStatus(ctx context.Context, status TaskStatus, filter shared.Filter) ([]*Task, int64, error)

	// CountByStatus returns task counts grouped by status
	CountByStatus(ctx context.Context) (map[TaskStatus]int64, error)
}
