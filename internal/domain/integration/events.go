package integration

import (
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeIntegration = "Integration"
	AggregateTypeTask        = "IntegrationTask"
)

// Event type constants
const (
	EventTypeTaskSucceeded = "IntegrationTaskSucceeded"
	EventTypeTaskFailed    = "IntegrationTaskFailed"
)

// TaskSucceededEvent is published after a queue task completed successfully
type TaskSucceededEvent struct {
	shared.BaseDomainEvent
	TaskID        uuid.UUID `json:"task_id"`
	IntegrationID uuid.UUID `json:"integration_id"`
	TaskName      string    `json:"task_name"`
}

// NewTaskSucceededEvent creates a new TaskSucceededEvent
func NewTaskSucceededEvent(task *Task) *TaskSucceededEvent {
	return &TaskSucceededEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTaskSucceeded, AggregateTypeTask, task.ID, task.TenantID),
		TaskID:          task.ID,
		IntegrationID:   task.IntegrationID,
		TaskName:        task.TaskName,
	}
}

// TaskFailedEvent is published after a queue task failed
type TaskFailedEvent struct {
	shared.BaseDomainEvent
	TaskID        uuid.UUID `json:"task_id"`
	IntegrationID uuid.UUID `json:"integration_id"`
	TaskName      string    `json:"task_name"`
	ErrorMessage  string    `json:"error_message"`
}

// NewTaskFailedEvent creates a new TaskFailedEvent
func NewTaskFailedEvent(task *Task) *TaskFailedEvent {
	return &TaskFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTaskFailed, AggregateTypeTask, task.ID, task.TenantID),
		TaskID:          task.ID,
		IntegrationID:   task.IntegrationID,
		TaskName:        task.TaskName,
		ErrorMessage:    task.ErrorMessage,
	}
}
