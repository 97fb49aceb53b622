package sync

import (
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constants
const (
	AggregateTypeRemoteProduct = "RemoteProduct"
	AggregateTypeSyncRequest   = "SyncRequest"
)

// Event type constants
const (
	EventTypeMirrorSynced         = "MirrorSynced"
	EventTypeSyncRequestEscalated = "SyncRequestEscalated"
)

// MirrorSyncedEvent is published after a successful remote operation has
// been persisted on the mirror row. Subscribers trigger dependent syncs
// (prices, images) through the task queue.
type MirrorSyncedEvent struct {
	shared.BaseDomainEvent
	MirrorID      uuid.UUID `json:"mirror_id"`
	IntegrationID uuid.UUID `json:"integration_id"`
	RemoteID      string    `json:"remote_id"`
	Action        string    `json:"action"`
}

// NewMirrorSyncedEvent creates a new MirrorSyncedEvent
func NewMirrorSyncedEvent(tenantID uuid.UUID, mirror RemoteObject, action string) *MirrorSyncedEvent {
	return &MirrorSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMirrorSynced, AggregateTypeRemoteProduct, mirror.GetID(), tenantID),
		MirrorID:        mirror.GetID(),
		IntegrationID:   mirror.GetIntegrationID(),
		RemoteID:        mirror.GetRemoteID(),
		Action:          action,
	}
}

// SyncRequestEscalatedEvent is published when property-level requests were
// collapsed into a product-level or parent-level request
type SyncRequestEscalatedEvent struct {
	shared.BaseDomainEvent
	SurvivorID      uuid.UUID `json:"survivor_id"`
	RemoteProductID uuid.UUID `json:"remote_product_id"`
	SyncType        SyncType  `json:"sync_type"`
	SupersededCount int       `json:"superseded_count"`
}

// NewSyncRequestEscalatedEvent creates a new SyncRequestEscalatedEvent
func NewSyncRequestEscalatedEvent(survivor *SyncRequest, supersededCount int) *SyncRequestEscalatedEvent {
	return &SyncRequestEscalatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncRequestEscalated, AggregateTypeSyncRequest, survivor.ID, survivor.TenantID),
		SurvivorID:      survivor.ID,
		RemoteProductID: survivor.RemoteProductID,
		SyncType:        survivor.SyncType,
		SupersededCount: supersededCount,
	}
}
