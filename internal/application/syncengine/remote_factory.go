package syncengine

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Action is the remote operation a factory performs
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Payload is the channel-ready representation of one local change.
// Channel-specific field mapping happens in the PayloadBuilder; the
// factory only moves payloads through the lifecycle.
type Payload map[string]any

// Response is the deserialized outcome of one remote call
type Response struct {
	RemoteID string
	Data     map[string]any
}

// PayloadBuilder builds the channel-specific payload for a subject.
// Implementations are per-channel collaborators; the factory guarantees
// Build runs after preflight passed and before any network call.
type PayloadBuilder interface {
	Build(ctx context.Context, subject *Subject) (Payload, error)
}

// ChannelClient performs the remote API calls for one channel
type ChannelClient interface {
	CreateObject(ctx context.Context, payload Payload) (*Response, error)
	UpdateObject(ctx context.Context, remoteID string, payload Payload) (*Response, error)
	DeleteObject(ctx context.Context, remoteID string) error
}

// MirrorStore persists mirror rows regardless of their concrete type
type MirrorStore interface {
	Persist(ctx context.Context, obj sync.RemoteObject) error
}

// AssignmentChecker reports whether a local instance is assigned to the
// channel at all; unassigned subjects abort preflight
type AssignmentChecker interface {
	IsAssigned(ctx context.Context, integrationID, localInstanceID uuid.UUID) (bool, error)
}

// Subject is the unit of work one factory run operates on
type Subject struct {
	TenantID    uuid.UUID
	Integration *integration.Integration
	// Mirror is the remote object being created, updated or deleted
	Mirror sync.RemoteObject
	// Parent is the required parent mirror for variation subjects; nil
	// when the subject has no parent requirement
	Parent sync.RemoteObject
}

// Result is the outcome of one factory run
type Result struct {
	// Aborted is true when preflight found nothing to do. Not an error:
	// no remote call was made, no mirror was touched, nothing logged
	// beyond debug level.
	Aborted bool
	// Payload is always populated once building succeeded, including in
	// value-only mode, so callers can inspect what would be sent.
	Payload Payload
	// Response is the remote outcome; nil when aborted or value-only
	Response *Response
}

// FactoryConfig parameterizes one RemoteFactory instance
type FactoryConfig struct {
	// Action selects create, update or delete
	Action Action
	// SyncEnabled is the channel-level flag for this object kind
	// (e.g. "sync prices"); false aborts preflight
	SyncEnabled bool
	// RequireParent aborts preflight when the subject has no
	// successfully created parent mirror
	RequireParent bool
	// ValueOnly short-circuits before any network call while still
	// producing the payload, for previews and tests
	ValueOnly bool
}

// RemoteFactory is the uniform lifecycle shared by every "push this local
// change to a remote system" operation:
//
//	preflight -> (abort | build payload -> remote call -> persist mirror
//	           -> post-process -> log)
//
// One concrete type composed from injected collaborators per channel and
// entity; there is no per-channel subclassing. The factory takes no locks:
// the dedupe engine upstream keeps concurrent syncs per remote object out,
// and last-write-wins on the mirror row is acceptable if it happens anyway.
type RemoteFactory struct {
	config     FactoryConfig
	builder    PayloadBuilder
	client     ChannelClient
	mirrors    MirrorStore
	assignment AssignmentChecker
	logs       sync.SyncLogRepository
	eventBus   shared.EventPublisher
	logger     *zap.Logger
}

// NewRemoteFactory creates a factory for one action on one channel
func NewRemoteFactory(
	config FactoryConfig,
	builder PayloadBuilder,
	client ChannelClient,
	mirrors MirrorStore,
	assignment AssignmentChecker,
	logs sync.SyncLogRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *RemoteFactory {
	return &RemoteFactory{
		config:     config,
		builder:    builder,
		client:     client,
		mirrors:    mirrors,
		assignment: assignment,
		logs:       logs,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Run executes the lifecycle for one subject. A preflight abort returns
// (Result{Aborted: true}, nil). A remote failure marks the mirror
// not-successfully-created and outdated, persists it, logs the failure
// and returns the error; the caller decides whether to suppress it.
func (f *RemoteFactory) Run(ctx context.Context, subject *Subject) (*Result, error) {
	ok, err := f.preflight(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !ok {
		f.logger.Debug("sync preflight aborted",
			zap.String("action", string(f.config.Action)),
			zap.String("mirror_id", subject.Mirror.GetID().String()),
		)
		return &Result{Aborted: true}, nil
	}

	payload, err := f.builder.Build(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("syncengine: building payload: %w", err)
	}

	if f.config.ValueOnly {
		return &Result{Payload: payload}, nil
	}

	response, err := f.callRemote(ctx, subject, payload)
	if err != nil {
		subject.Mirror.MarkCreateFailed()
		subject.Mirror.MarkOutdated()
		if persistErr := f.mirrors.Persist(ctx, subject.Mirror); persistErr != nil {
			f.logger.Error("failed to persist mirror after remote failure", zap.Error(persistErr))
		}
		f.writeLog(ctx, subject, sync.LogOutcomeFailed, err.Error())
		return nil, err
	}

	if response != nil && response.RemoteID != "" {
		subject.Mirror.SetRemoteID(response.RemoteID)
	}
	subject.Mirror.MarkCreated()
	subject.Mirror.ClearOutdated()
	if err := f.mirrors.Persist(ctx, subject.Mirror); err != nil {
		return nil, fmt.Errorf("syncengine: persisting mirror: %w", err)
	}

	f.writeLog(ctx, subject, sync.LogOutcomeSuccess, "")

	// The signal fires only after the mirror row is durable.
	f.publish(ctx, sync.NewMirrorSyncedEvent(subject.TenantID, subject.Mirror, string(f.config.Action)))

	return &Result{Payload: payload, Response: response}, nil
}

// preflight verifies the operation is applicable at all. False means a
// normal "nothing to do", distinct from failure.
func (f *RemoteFactory) preflight(ctx context.Context, subject *Subject) (bool, error) {
	if !f.config.SyncEnabled {
		return false, nil
	}
	if subject.Integration != nil && !subject.Integration.Active {
		return false, nil
	}
	if f.config.RequireParent {
		if subject.Parent == nil || !subject.Parent.IsSuccessfullyCreated() {
			return false, nil
		}
	}
	if f.assignment != nil {
		assigned, err := f.assignment.IsAssigned(ctx, subject.Mirror.GetIntegrationID(), subject.Mirror.GetLocalInstanceID())
		if err != nil {
			return false, fmt.Errorf("syncengine: checking channel assignment: %w", err)
		}
		if !assigned {
			return false, nil
		}
	}
	return true, nil
}

func (f *RemoteFactory) callRemote(ctx context.Context, subject *Subject, payload Payload) (*Response, error) {
	switch f.config.Action {
	case ActionCreate:
		return f.client.CreateObject(ctx, payload)
	case ActionUpdate:
		return f.client.UpdateObject(ctx, subject.Mirror.GetRemoteID(), payload)
	case ActionDelete:
		return nil, f.client.DeleteObject(ctx, subject.Mirror.GetRemoteID())
	default:
		return nil, shared.ErrInvalidInput
	}
}

func (f *RemoteFactory) writeLog(ctx context.Context, subject *Subject, outcome sync.LogOutcome, message string) {
	if f.logs == nil {
		return
	}
	entry := sync.NewSyncLog(subject.TenantID, subject.Mirror.GetIntegrationID(), subject.Mirror.GetID(), string(f.config.Action), outcome, message)
	if err := f.logs.Save(ctx, entry); err != nil {
		f.logger.Error("failed to write sync log", zap.Error(err))
	}
}

func (f *RemoteFactory) publish(ctx context.Context, event shared.DomainEvent) {
	if f.eventBus == nil {
		return
	}
	if err := f.eventBus.Publish(ctx, event); err != nil {
		f.logger.Error("failed to publish mirror event", zap.Error(err))
	}
}
