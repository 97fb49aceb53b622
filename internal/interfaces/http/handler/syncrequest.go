package handler

import (
	"errors"

	"github.com/channelsync/backend/internal/application/syncengine"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncRequestHandler files sync intents through the dedupe engine. Internal
// callers publish events instead; this surface exists for channel webhooks
// and operator tooling.
type SyncRequestHandler struct {
	BaseHandler
	requests *syncengine.RequestService
}

// NewSyncRequestHandler creates a new SyncRequestHandler
func NewSyncRequestHandler(requests *syncengine.RequestService) *SyncRequestHandler {
	return &SyncRequestHandler{requests: requests}
}

// CreateSyncRequest carries one incoming sync intent
type CreateSyncRequest struct {
	TenantID        string  `json:"tenant_id" binding:"required,uuid"`
	IntegrationID   string  `json:"integration_id" binding:"required,uuid"`
	RemoteProductID string  `json:"remote_product_id" binding:"required,uuid"`
	SyncType        string  `json:"sync_type" binding:"required,synctype"`
	PropertyID      *string `json:"property_id,omitempty" binding:"omitempty,uuid"`
}

// SyncRequestResponse represents one sync request in API responses
type SyncRequestResponse struct {
	ID              string  `json:"id"`
	RemoteProductID string  `json:"remote_product_id"`
	SyncType        string  `json:"sync_type"`
	Status          string  `json:"status"`
	SkippedForID    *string `json:"skipped_for_id,omitempty"`
	TaskName        string  `json:"task_name"`
}

func toSyncRequestResponse(req *sync.SyncRequest) SyncRequestResponse {
	resp := SyncRequestResponse{
		ID:              req.ID.String(),
		RemoteProductID: req.RemoteProductID.String(),
		SyncType:        string(req.SyncType),
		Status:          string(req.Status),
		TaskName:        req.TaskName,
	}
	if req.SkippedForID != nil {
		s := req.SkippedForID.String()
		resp.SkippedForID = &s
	}
	return resp
}

// Create files a sync intent. The response row's status tells the caller
// whether the intent survived (PENDING) or was absorbed by existing or
// escalated work (SKIPPED).
func (h *SyncRequestHandler) Create(c *gin.Context) {
	var req CreateSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	syncType := sync.SyncType(req.SyncType)
	params := syncengine.CreateParams{
		TenantID:        uuid.MustParse(req.TenantID),
		IntegrationID:   uuid.MustParse(req.IntegrationID),
		RemoteProductID: uuid.MustParse(req.RemoteProductID),
		SyncType:        syncType,
		TaskName:        taskNameFor(syncType),
	}
	if req.PropertyID != nil {
		propertyID := uuid.MustParse(*req.PropertyID)
		params.PropertyID = &propertyID
	}

	created, err := h.requests.Create(c.Request.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidInput),
			errors.Is(err, sync.ErrInvalidRemoteProduct),
			errors.Is(err, sync.ErrInvalidSyncType):
			h.BadRequest(c, err.Error())
		default:
			h.InternalError(c, "failed to file sync request")
		}
		return
	}

	h.Accepted(c, toSyncRequestResponse(created))
}

func taskNameFor(syncType sync.SyncType) string {
	if syncType == sync.SyncTypeParent {
		return syncengine.TaskParentResync
	}
	return syncengine.TaskProductResync
}
