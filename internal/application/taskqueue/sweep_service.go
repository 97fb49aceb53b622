package taskqueue

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSweepBatchSize bounds how many pending tasks one sweep pass
// considers per integration.
const DefaultSweepBatchSize = 500

// SweepService drains the pending backlog. For every integration with
// pending work it re-evaluates the rate budget against currently
// PROCESSING cost and dispatches what fits, highest-priority and oldest
// first. Integrations that went inactive since enqueue get their entire
// pending backlog skipped in one statement, never a partial skip.
type SweepService struct {
	integrationRepo integration.IntegrationRepository
	taskRepo        integration.TaskRepository
	registry        *integration.TaskRegistry
	queue           *QueueService
	batchSize       int
	logger          *zap.Logger
}

// NewSweepService creates a sweep service with the given per-integration
// batch size; zero means DefaultSweepBatchSize
func NewSweepService(
	integrationRepo integration.IntegrationRepository,
	taskRepo integration.TaskRepository,
	registry *integration.TaskRegistry,
	queue *QueueService,
	batchSize int,
	logger *zap.Logger,
) *SweepService {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &SweepService{
		integrationRepo: integrationRepo,
		taskRepo:        taskRepo,
		registry:        registry,
		queue:           queue,
		batchSize:       batchSize,
		logger:          logger,
	}
}

// Run executes one sweep pass. Errors on one integration do not stop the
// others; the first error is returned after the pass completes.
func (s *SweepService) Run(ctx context.Context) error {
	ids, err := s.taskRepo.IntegrationIDsWithPending(ctx)
	if err != nil {
		return fmt.Errorf("taskqueue: listing integrations with pending work: %w", err)
	}

	var firstErr error
	for _, id := range ids {
		if err := s.sweepIntegration(ctx, id); err != nil {
			s.logger.Error("sweep failed for integration",
				zap.String("integration_id", id.String()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// sweepIntegration drains one integration's backlog within its budget
func (s *SweepService) sweepIntegration(ctx context.Context, integrationID uuid.UUID) error {
	inst, err := s.integrationRepo.FindByID(ctx, integrationID)
	if err != nil {
		return fmt.Errorf("taskqueue: resolving integration: %w", err)
	}

	if !inst.Active {
		skipped, err := s.taskRepo.MarkAllPendingSkipped(ctx, inst.ID)
		if err != nil {
			return fmt.Errorf("taskqueue: skipping backlog of inactive integration: %w", err)
		}
		s.logger.Info("skipped pending tasks of inactive integration",
			zap.String("integration_id", inst.ID.String()),
			zap.Int64("skipped", skipped),
		)
		return nil
	}

	used, err := s.taskRepo.SumProcessingCost(ctx, inst.ID)
	if err != nil {
		return fmt.Errorf("taskqueue: summing processing cost: %w", err)
	}

	pending, err := s.taskRepo.FindPending(ctx, inst.ID, s.batchSize)
	if err != nil {
		return fmt.Errorf("taskqueue: fetching pending tasks: %w", err)
	}

	for _, task := range pending {
		if used+task.RemoteRequests > inst.RequestsPerMinute {
			// Budget exhausted; the rest stays pending for the
			// next pass. Stopping keeps the drain order fair.
			break
		}

		def, ok := s.registry.Resolve(task.TaskName)
		if !ok {
			task.MarkFailed(shared.ErrUnknownTask.Error(), "")
			if err := s.taskRepo.Update(ctx, task); err != nil {
				return fmt.Errorf("taskqueue: failing unknown task: %w", err)
			}
			continue
		}

		if err := task.MarkProcessing(); err != nil {
			return err
		}
		if err := s.taskRepo.Update(ctx, task); err != nil {
			return fmt.Errorf("taskqueue: claiming pending task: %w", err)
		}

		used += task.RemoteRequests
		s.queue.Dispatch(ctx, task, def)
	}

	return nil
}
