package syncengine

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultEscalationThreshold is how many distinct property-level requests
// for one remote product trigger escalation to a product-level resync.
const DefaultEscalationThreshold = 2

// RequestServiceConfig carries the task bindings and thresholds of the
// dedupe engine
type RequestServiceConfig struct {
	// ProductResyncTask is the fallback task bound to escalated
	// product-level requests
	ProductResyncTask string
	// ParentResyncTask is the task bound to parent-level requests
	ParentResyncTask string
	// EscalationThreshold is the distinct-property count that triggers
	// product-level escalation; zero means the default of 2
	EscalationThreshold int
}

// RequestService collapses repeated and overlapping change notifications
// for the same remote object into a single pending unit of work, and
// escalates bursts: N property changes on one product become one product
// resync; product-level requests across every sibling variation of one
// parent become one parent resync. Escalation is monotonic, never undone.
//
// Every decision runs in a single database transaction, so intermediate
// escalation states are never observable. A skipped request resolves to a
// pending survivor in at most two hops: property requests superseded by a
// product-level request that itself escalated to parent level keep
// pointing at the product row.
type RequestService struct {
	requests sync.SyncRequestRepository
	mirrors  sync.RemoteProductRepository
	eventBus shared.EventPublisher
	config   RequestServiceConfig
	logger   *zap.Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requests sync.SyncRequestRepository,
	mirrors sync.RemoteProductRepository,
	eventBus shared.EventPublisher,
	config RequestServiceConfig,
	logger *zap.Logger,
) *RequestService {
	if config.EscalationThreshold <= 0 {
		config.EscalationThreshold = DefaultEscalationThreshold
	}
	return &RequestService{
		requests: requests,
		mirrors:  mirrors,
		eventBus: eventBus,
		config:   config,
		logger:   logger,
	}
}

// CreateParams carries one incoming sync intent
type CreateParams struct {
	TenantID        uuid.UUID
	IntegrationID   uuid.UUID
	RemoteProductID uuid.UUID
	SyncType        sync.SyncType
	TaskName        string
	// PropertyID identifies the changed property for property-level
	// intents; nil otherwise
	PropertyID *uuid.UUID
}

// Create files the intent, applying dedupe and escalation. The returned
// request is the row created for this call; its status tells the caller
// whether it survived (PENDING) or was superseded (SKIPPED).
func (s *RequestService) Create(ctx context.Context, params CreateParams) (*sync.SyncRequest, error) {
	incoming, err := sync.NewSyncRequest(params.TenantID, params.IntegrationID, params.RemoteProductID, params.SyncType, params.TaskName, params.PropertyID)
	if err != nil {
		return nil, err
	}

	var escalated *sync.SyncRequest
	var superseded int

	err = s.requests.InTransaction(ctx, func(repo sync.SyncRequestRepository) error {
		pending, err := repo.FindPendingByProduct(ctx, params.RemoteProductID)
		if err != nil {
			return fmt.Errorf("syncengine: loading pending requests: %w", err)
		}

		// Pure dedupe: an identical pending request already exists.
		if dup := findSameIdentity(pending, incoming); dup != nil {
			if err := incoming.MarkSkippedFor(dup.ID); err != nil {
				return err
			}
			return repo.Save(ctx, incoming)
		}

		// Monotonic escalation: a broader pending request absorbs
		// any narrower incoming one without further bookkeeping.
		if broader := findBroader(pending, incoming.SyncType); broader != nil {
			if err := incoming.MarkSkippedFor(broader.ID); err != nil {
				return err
			}
			return repo.Save(ctx, incoming)
		}

		if incoming.SyncType == sync.SyncTypeProperty {
			distinct := countPropertyRequests(pending) + 1
			if distinct < s.config.EscalationThreshold {
				return repo.Save(ctx, incoming)
			}

			// Burst detected: one product-level request replaces
			// the incoming and every prior property request.
			survivor, n, err := s.escalateToProduct(ctx, repo, incoming, pending)
			if err != nil {
				return err
			}
			escalated, superseded = survivor, n
			return s.maybeEscalateToParent(ctx, repo, survivor, &escalated, &superseded)
		}

		// Product-level intent supersedes pending property requests.
		if incoming.SyncType == sync.SyncTypeProduct {
			ids := requestIDs(filterByType(pending, sync.SyncTypeProperty))
			if err := repo.Save(ctx, incoming); err != nil {
				return err
			}
			if len(ids) > 0 {
				if err := repo.BulkMarkSkipped(ctx, ids, incoming.ID); err != nil {
					return fmt.Errorf("syncengine: superseding property requests: %w", err)
				}
				escalated, superseded = incoming, len(ids)
			}
			return s.maybeEscalateToParent(ctx, repo, incoming, &escalated, &superseded)
		}

		return repo.Save(ctx, incoming)
	})
	if err != nil {
		return nil, err
	}

	if escalated != nil {
		s.logger.Info("sync requests escalated",
			zap.String("survivor_id", escalated.ID.String()),
			zap.String("sync_type", string(escalated.SyncType)),
			zap.Int("superseded", superseded),
		)
		s.publish(ctx, sync.NewSyncRequestEscalatedEvent(escalated, superseded))
	}

	return incoming, nil
}

// escalateToProduct replaces the incoming property request and all pending
// property requests of the same product with one product-level request
func (s *RequestService) escalateToProduct(ctx context.Context, repo sync.SyncRequestRepository, incoming *sync.SyncRequest, pending []*sync.SyncRequest) (*sync.SyncRequest, int, error) {
	survivor, err := sync.NewSyncRequest(incoming.TenantID, incoming.IntegrationID, incoming.RemoteProductID, sync.SyncTypeProduct, s.config.ProductResyncTask, nil)
	if err != nil {
		return nil, 0, err
	}
	if err := repo.Save(ctx, survivor); err != nil {
		return nil, 0, err
	}

	if err := incoming.MarkSkippedFor(survivor.ID); err != nil {
		return nil, 0, err
	}
	if err := repo.Save(ctx, incoming); err != nil {
		return nil, 0, err
	}

	ids := requestIDs(filterByType(pending, sync.SyncTypeProperty))
	if len(ids) > 0 {
		if err := repo.BulkMarkSkipped(ctx, ids, survivor.ID); err != nil {
			return nil, 0, fmt.Errorf("syncengine: superseding property requests: %w", err)
		}
	}

	return survivor, len(ids) + 1, nil
}

// maybeEscalateToParent applies the second escalation tier: when every
// observed sibling variation under one remote parent has a pending
// product-level request, a single parent-level request supersedes them.
// The conservative all-observed-siblings rule applies.
func (s *RequestService) maybeEscalateToParent(ctx context.Context, repo sync.SyncRequestRepository, productReq *sync.SyncRequest, escalated **sync.SyncRequest, superseded *int) error {
	mirror, err := s.mirrors.FindByID(ctx, productReq.RemoteProductID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("syncengine: resolving mirror: %w", err)
	}
	if !mirror.IsVariation || mirror.RemoteParentProductID == nil {
		return nil
	}
	parentID := *mirror.RemoteParentProductID

	siblings, err := s.mirrors.FindVariations(ctx, parentID)
	if err != nil {
		return fmt.Errorf("syncengine: loading sibling variations: %w", err)
	}
	siblingReqs, err := repo.FindPendingProductLevelForSiblings(ctx, parentID)
	if err != nil {
		return fmt.Errorf("syncengine: loading sibling requests: %w", err)
	}

	covered := make(map[uuid.UUID]bool, len(siblingReqs))
	for _, r := range siblingReqs {
		covered[r.RemoteProductID] = true
	}
	for _, sib := range siblings {
		if !covered[sib.ID] {
			return nil
		}
	}
	if len(siblings) == 0 {
		return nil
	}

	parentReq, err := sync.NewSyncRequest(productReq.TenantID, productReq.IntegrationID, parentID, sync.SyncTypeParent, s.config.ParentResyncTask, nil)
	if err != nil {
		return err
	}
	if err := repo.Save(ctx, parentReq); err != nil {
		return err
	}
	if err := repo.BulkMarkSkipped(ctx, requestIDs(siblingReqs), parentReq.ID); err != nil {
		return fmt.Errorf("syncengine: superseding sibling requests: %w", err)
	}

	*escalated = parentReq
	*superseded += len(siblingReqs)
	return nil
}

func (s *RequestService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish escalation event", zap.Error(err))
	}
}

func findSameIdentity(pending []*sync.SyncRequest, incoming *sync.SyncRequest) *sync.SyncRequest {
	for _, r := range pending {
		if r.SameIdentity(incoming.RemoteProductID, incoming.SyncType, incoming.PropertyID) {
			return r
		}
	}
	return nil
}

// findBroader returns a pending request of wider scope than syncType
func findBroader(pending []*sync.SyncRequest, syncType sync.SyncType) *sync.SyncRequest {
	rank := map[sync.SyncType]int{
		sync.SyncTypeProperty: 0,
		sync.SyncTypeProduct:  1,
		sync.SyncTypeParent:   2,
	}
	for _, r := range pending {
		if rank[r.SyncType] > rank[syncType] {
			return r
		}
	}
	return nil
}

func filterByType(requests []*sync.SyncRequest, syncType sync.SyncType) []*sync.SyncRequest {
	var out []*sync.SyncRequest
	for _, r := range requests {
		if r.SyncType == syncType {
			out = append(out, r)
		}
	}
	return out
}

func countPropertyRequests(requests []*sync.SyncRequest) int {
	return len(filterByType(requests, sync.SyncTypeProperty))
}

func requestIDs(requests []*sync.SyncRequest) []uuid.UUID {
	ids := make([]uuid.UUID, len(requests))
	for i, r := range requests {
		ids[i] = r.ID
	}
	return ids
}
