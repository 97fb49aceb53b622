package syncengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/channelsync/backend/internal/application/taskqueue"
	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// TaskEnqueuer enqueues deferred queue work. Satisfied by the queue service.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, params taskqueue.EnqueueParams) (*integration.Task, error)
}

// MirrorSyncedHandler reacts to MirrorSynced events by enqueueing dependent
// follow-up syncs through the task queue. A freshly created product mirror
// has no prices on the channel yet, so a create always schedules the price
// push; updates rely on the diffing in the price factory to no-op cheaply.
type MirrorSyncedHandler struct {
	enqueuer      TaskEnqueuer
	priceSyncTask string
	logger        *zap.Logger
}

// NewMirrorSyncedHandler creates the dependent-sync subscriber
func NewMirrorSyncedHandler(enqueuer TaskEnqueuer, priceSyncTask string, logger *zap.Logger) *MirrorSyncedHandler {
	return &MirrorSyncedHandler{
		enqueuer:      enqueuer,
		priceSyncTask: priceSyncTask,
		logger:        logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *MirrorSyncedHandler) EventTypes() []string {
	return []string{sync.EventTypeMirrorSynced}
}

// Handle enqueues the dependent price sync for the synced mirror
func (h *MirrorSyncedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	synced, ok := event.(*sync.MirrorSyncedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			sync.EventTypeMirrorSynced, event.EventType())
	}

	if synced.Action == string(ActionDelete) {
		return nil
	}

	args, err := json.Marshal(map[string]string{
		"mirror_id": synced.MirrorID.String(),
	})
	if err != nil {
		return fmt.Errorf("syncengine: encoding task args: %w", err)
	}

	task, err := h.enqueuer.Enqueue(ctx, taskqueue.EnqueueParams{
		TenantID:      synced.TenantID(),
		IntegrationID: synced.IntegrationID,
		TaskName:      h.priceSyncTask,
		Args:          args,
	})
	if err != nil {
		return fmt.Errorf("syncengine: enqueueing dependent price sync: %w", err)
	}

	h.logger.Debug("dependent price sync enqueued",
		zap.String("mirror_id", synced.MirrorID.String()),
		zap.String("task_id", task.ID.String()),
	)
	return nil
}

// Ensure MirrorSyncedHandler implements EventHandler
var _ shared.EventHandler = (*MirrorSyncedHandler)(nil)
