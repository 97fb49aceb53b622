package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/channelsync/backend/internal/application/syncengine"
	"github.com/channelsync/backend/internal/domain/catalog"
	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/channel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mirrorArgs is the payload every sync task is enqueued with
type mirrorArgs struct {
	MirrorID uuid.UUID `json:"mirror_id"`
}

// taskDependencies bundles the collaborators the registered task functions
// close over. Task functions resolve their integration and channel client
// per invocation, since one queue serves every channel.
type taskDependencies struct {
	integrations integration.IntegrationRepository
	mirrors      sync.RemoteProductRepository
	products     catalog.ProductRepository
	prices       catalog.ProductPriceRepository
	mirrorStore  syncengine.MirrorStore
	logs         sync.SyncLogRepository
	eventBus     shared.EventPublisher
	currencies   []string
	// fallback serves integrations without a hostname, for local runs
	fallback syncengine.ChannelClient
	logger   *zap.Logger
}

// registerTasks populates the task registry. A parent resync fans out to
// every variation, so it carries a higher rate-budget cost than a single
// product push.
func registerTasks(registry *integration.TaskRegistry, deps *taskDependencies) {
	registry.Register(integration.TaskDefinition{
		Name:           syncengine.TaskProductResync,
		Func:           deps.productResync,
		RemoteRequests: 1,
	})
	registry.Register(integration.TaskDefinition{
		Name:           syncengine.TaskParentResync,
		Func:           deps.parentResync,
		RemoteRequests: 2,
	})
	registry.Register(integration.TaskDefinition{
		Name:           syncengine.TaskPriceSync,
		Func:           deps.priceSync,
		RemoteRequests: 1,
	})
}

func (d *taskDependencies) productResync(ctx context.Context, inv integration.TaskInvocation) error {
	mirror, inst, err := d.resolve(ctx, inv)
	if err != nil {
		return err
	}
	return d.pushProduct(ctx, inst, mirror)
}

// parentResync pushes the parent first, then every variation under it.
// A failing variation does not stop its siblings; the first error is
// returned so the queue records the run as failed.
func (d *taskDependencies) parentResync(ctx context.Context, inv integration.TaskInvocation) error {
	mirror, inst, err := d.resolve(ctx, inv)
	if err != nil {
		return err
	}

	if err := d.pushProduct(ctx, inst, mirror); err != nil {
		return err
	}

	variations, err := d.mirrors.FindVariations(ctx, mirror.ID)
	if err != nil {
		return fmt.Errorf("loading variations: %w", err)
	}

	var firstErr error
	for _, variation := range variations {
		if err := d.pushProduct(ctx, inst, variation); err != nil {
			d.logger.Error("variation resync failed",
				zap.String("mirror_id", variation.ID.String()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (d *taskDependencies) priceSync(ctx context.Context, inv integration.TaskInvocation) error {
	mirror, inst, err := d.resolve(ctx, inv)
	if err != nil {
		return err
	}

	client, err := d.clientFor(inst)
	if err != nil {
		return err
	}

	factory := syncengine.NewPriceUpdateFactory(d.prices, client, d.mirrorStore, d.logs, d.currencies, d.logger)
	_, err = factory.Run(ctx, mirror)
	return err
}

// pushProduct runs the generic product factory for one mirror, creating
// the remote object when it has no remote ID yet and updating otherwise
func (d *taskDependencies) pushProduct(ctx context.Context, inst *integration.Integration, mirror *sync.RemoteProduct) error {
	client, err := d.clientFor(inst)
	if err != nil {
		return err
	}

	subject := &syncengine.Subject{
		TenantID:    mirror.TenantID,
		Integration: inst,
		Mirror:      mirror,
	}
	if mirror.IsVariation && mirror.RemoteParentProductID != nil {
		parent, err := d.mirrors.FindByID(ctx, *mirror.RemoteParentProductID)
		if err != nil {
			return fmt.Errorf("loading parent mirror: %w", err)
		}
		subject.Parent = parent
	}

	action := syncengine.ActionCreate
	if mirror.RemoteID != "" {
		action = syncengine.ActionUpdate
	}

	factory := syncengine.NewRemoteFactory(
		syncengine.FactoryConfig{
			Action:        action,
			SyncEnabled:   true,
			RequireParent: mirror.IsVariation,
		},
		syncengine.NewProductPayloadBuilder(d.products),
		client,
		d.mirrorStore,
		nil,
		d.logs,
		d.eventBus,
		d.logger,
	)
	_, err = factory.Run(ctx, subject)
	return err
}

// resolve parses the invocation args and loads the mirror row plus its
// owning integration
func (d *taskDependencies) resolve(ctx context.Context, inv integration.TaskInvocation) (*sync.RemoteProduct, *integration.Integration, error) {
	var args mirrorArgs
	if err := json.Unmarshal(inv.Args, &args); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding task args: %v", shared.ErrInvalidInput, err)
	}
	if args.MirrorID == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: mirror_id is required", shared.ErrInvalidInput)
	}

	mirror, err := d.mirrors.FindByID(ctx, args.MirrorID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading mirror: %w", err)
	}

	inst, err := d.integrations.FindByID(ctx, mirror.IntegrationID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading integration: %w", err)
	}
	return mirror, inst, nil
}

func (d *taskDependencies) clientFor(inst *integration.Integration) (syncengine.ChannelClient, error) {
	if inst.Hostname == "" {
		if d.fallback != nil {
			return d.fallback, nil
		}
		return nil, fmt.Errorf("channel: integration %s has no hostname", inst.ID)
	}
	return channel.NewRESTClient(inst, channel.RESTClientConfig{Resource: "products"})
}
