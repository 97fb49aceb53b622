package taskqueue

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EnqueueParams carries the arguments of one enqueue call
type EnqueueParams struct {
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	TaskName      string
	Args          []byte
	// RemoteRequests overrides the task's registered rate-budget cost.
	// Nil means "use the registration, else 1".
	RemoteRequests *int
	// Priority overrides the task's registered priority.
	Priority *int
}

// QueueService is the admission-controlled front door for deferred remote
// work. Enqueue either dispatches immediately (budget permitting) or parks
// the task as PENDING for the next sweep. Admission is checked-then-act:
// concurrent enqueues can transiently overshoot the budget by at most the
// most recently admitted task's cost, which is accepted.
type QueueService struct {
	integrationRepo integration.IntegrationRepository
	taskRepo        integration.TaskRepository
	registry        *integration.TaskRegistry
	eventBus        shared.EventPublisher
	logger          *zap.Logger
}

// NewQueueService creates a new QueueService
func NewQueueService(
	integrationRepo integration.IntegrationRepository,
	taskRepo integration.TaskRepository,
	registry *integration.TaskRegistry,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *QueueService {
	return &QueueService{
		integrationRepo: integrationRepo,
		taskRepo:        taskRepo,
		registry:        registry,
		eventBus:        eventBus,
		logger:          logger,
	}
}

// Enqueue validates the request, runs the admission check and creates the
// queue row. Validation failures (unknown task, missing integration,
// non-positive cost) return synchronously; task execution failures do not,
// they land on the task row.
func (s *QueueService) Enqueue(ctx context.Context, params EnqueueParams) (*integration.Task, error) {
	inst, err := s.integrationRepo.FindByID(ctx, params.IntegrationID)
	if err != nil {
		return nil, fmt.Errorf("taskqueue: resolving integration: %w", err)
	}

	def, ok := s.registry.Resolve(params.TaskName)
	if !ok {
		return nil, shared.ErrUnknownTask
	}

	cost := resolveCost(params.RemoteRequests, def)
	if cost <= 0 {
		return nil, integration.ErrInvalidRemoteRequests
	}
	priority := resolvePriority(params.Priority, def)

	inFlight, err := s.taskRepo.SumInFlightCost(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("taskqueue: summing in-flight cost: %w", err)
	}

	task, err := integration.NewTask(params.TenantID, inst.ID, params.TaskName, params.Args, cost, priority)
	if err != nil {
		return nil, err
	}

	processNow := inst.Active && inFlight+cost <= inst.RequestsPerMinute
	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("taskqueue: saving task: %w", err)
	}

	if !processNow {
		s.logger.Debug("task parked pending budget",
			zap.String("task", task.TaskName),
			zap.String("integration_id", inst.ID.String()),
			zap.Int("in_flight", inFlight),
			zap.Int("cost", cost),
			zap.Int("budget", inst.RequestsPerMinute),
		)
		return task, nil
	}

	if err := task.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("taskqueue: claiming task: %w", err)
	}

	s.Dispatch(ctx, task, def)
	return task, nil
}

// Dispatch executes a claimed task and records the terminal outcome on the
// row. Errors and panics from the callable are caught here; callers learn
// about them from the task status, not a returned error.
func (s *QueueService) Dispatch(ctx context.Context, task *integration.Task, def integration.TaskDefinition) {
	inv := integration.TaskInvocation{
		TenantID:      task.TenantID,
		IntegrationID: task.IntegrationID,
		TaskID:        task.ID,
		Args:          task.TaskArgs,
	}

	err := s.runTask(ctx, def, inv)
	if err != nil {
		task.MarkFailed(err.Error(), string(debug.Stack()))
		if updateErr := s.taskRepo.Update(ctx, task); updateErr != nil {
			s.logger.Error("failed to persist task failure", zap.Error(updateErr))
		}
		s.logger.Warn("queue task failed",
			zap.String("task", task.TaskName),
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
		s.publish(ctx, integration.NewTaskFailedEvent(task))
		return
	}

	task.MarkSucceeded()
	if updateErr := s.taskRepo.Update(ctx, task); updateErr != nil {
		s.logger.Error("failed to persist task success", zap.Error(updateErr))
	}
	s.logger.Debug("queue task succeeded",
		zap.String("task", task.TaskName),
		zap.String("task_id", task.ID.String()),
	)
	s.publish(ctx, integration.NewTaskSucceededEvent(task))
}

// Retry re-dispatches a failed task on operator request. With retryNow the
// admission check is bypassed entirely; this is an explicit ops override,
// not subject to the rate budget. Without retryNow the task is parked
// PENDING for the next sweep.
func (s *QueueService) Retry(ctx context.Context, taskID uuid.UUID, retryNow bool) (*integration.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("taskqueue: resolving task: %w", err)
	}

	if err := task.PrepareRetry(); err != nil {
		return nil, err
	}

	def, ok := s.registry.Resolve(task.TaskName)
	if !ok {
		return nil, shared.ErrUnknownTask
	}

	if !retryNow {
		if err := s.taskRepo.Update(ctx, task); err != nil {
			return nil, fmt.Errorf("taskqueue: parking retry: %w", err)
		}
		return task, nil
	}

	if err := task.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("taskqueue: claiming retry: %w", err)
	}
	s.Dispatch(ctx, task, def)
	return task, nil
}

// runTask invokes the callable with panic isolation
func (s *QueueService) runTask(ctx context.Context, def integration.TaskDefinition, inv integration.TaskInvocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return def.Func(ctx, inv)
}

func (s *QueueService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish task event", zap.Error(err))
	}
}

func resolveCost(override *int, def integration.TaskDefinition) int {
	if override != nil {
		return *override
	}
	if def.RemoteRequests > 0 {
		return def.RemoteRequests
	}
	return 1
}

func resolvePriority(override *int, def integration.TaskDefinition) int {
	if override != nil {
		return *override
	}
	if def.Priority > 0 {
		return def.Priority
	}
	return integration.DefaultTaskPriority
}
