package handler

import (
	"errors"
	"time"

	"github.com/channelsync/backend/internal/application/taskqueue"
	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QueueHandler exposes the ops surface of the task queue: status counts,
// task listings by status and the operator retry action.
type QueueHandler struct {
	BaseHandler
	queue *taskqueue.QueueService
	tasks integration.TaskRepository
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(queue *taskqueue.QueueService, tasks integration.TaskRepository) *QueueHandler {
	return &QueueHandler{queue: queue, tasks: tasks}
}

// TaskResponse represents one queue task in API responses
type TaskResponse struct {
	ID             string    `json:"id"`
	IntegrationID  string    `json:"integration_id"`
	TaskName       string    `json:"task_name"`
	Status         string    `json:"status"`
	Priority       int       `json:"priority"`
	RemoteRequests int       `json:"remote_requests"`
	SentToQueueAt  time.Time `json:"sent_to_queue_at"`
	Retry          int       `json:"retry"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

func toTaskResponse(task *integration.Task) TaskResponse {
	return TaskResponse{
		ID:             task.ID.String(),
		IntegrationID:  task.IntegrationID.String(),
		TaskName:       task.TaskName,
		Status:         string(task.Status),
		Priority:       task.Priority,
		RemoteRequests: task.RemoteRequests,
		SentToQueueAt:  task.SentToQueueAt,
		Retry:          task.Retry,
		ErrorMessage:   task.ErrorMessage,
	}
}

// GetStats returns task counts grouped by status
func (h *QueueHandler) GetStats(c *gin.Context) {
	counts, err := h.tasks.CountByStatus(c.Request.Context())
	if err != nil {
		h.InternalError(c, "failed to load queue stats")
		return
	}

	stats := make(map[string]int64, len(counts))
	for status, count := range counts {
		stats[string(status)] = count
	}
	h.Success(c, stats)
}

// ListTasks returns tasks filtered by status, newest first
func (h *QueueHandler) ListTasks(c *gin.Context) {
	status := integration.TaskStatus(c.Query("status"))
	switch status {
	case integration.TaskStatusPending, integration.TaskStatusProcessing,
		integration.TaskStatusSkipped, integration.TaskStatusSuccess,
		integration.TaskStatusFailed:
	default:
		h.BadRequest(c, "unknown or missing status")
		return
	}

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	listReq.Normalize()

	filter := shared.DefaultFilter()
	filter.Page = listReq.Page
	filter.PageSize = listReq.PageSize

	tasks, total, err := h.tasks.FindByStatus(c.Request.Context(), status, filter)
	if err != nil {
		h.InternalError(c, "failed to list tasks")
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, toTaskResponse(task))
	}
	h.SuccessWithMeta(c, responses, total, listReq.Page, listReq.PageSize)
}

// RetryRequest carries the retry options
type RetryRequest struct {
	// RetryNow bypasses the rate budget and dispatches immediately.
	RetryNow bool `json:"retry_now"`
}

// RetryTask moves a failed task back into the queue
func (h *QueueHandler) RetryTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid task ID")
		return
	}

	var req RetryRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, err.Error())
		return
	}

	task, err := h.queue.Retry(c.Request.Context(), taskID, req.RetryNow)
	if err != nil {
		switch {
		case shared.IsNotFound(err):
			h.NotFound(c, "task not found")
		case errors.Is(err, integration.ErrTaskNotRetryable):
			h.Conflict(c, "task is not in a retryable state")
		default:
			h.InternalError(c, "failed to retry task")
		}
		return
	}

	h.Success(c, toTaskResponse(task))
}
