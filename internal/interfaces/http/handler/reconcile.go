package handler

import (
	"github.com/channelsync/backend/internal/application/reconcile"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconcileHandler triggers select-value reconciliation for one integration
// on operator request, outside the nightly schedule
type ReconcileHandler struct {
	BaseHandler
	matcher *reconcile.SelectValueMatcher
}

// NewReconcileHandler creates a new ReconcileHandler
func NewReconcileHandler(matcher *reconcile.SelectValueMatcher) *ReconcileHandler {
	return &ReconcileHandler{matcher: matcher}
}

// ReconcileResponse reports the outcome of one reconciliation run
type ReconcileResponse struct {
	IntegrationID string `json:"integration_id"`
	Scanned       int    `json:"scanned"`
	Mapped        int    `json:"mapped"`
}

// Run executes reconciliation synchronously and reports the counts
func (h *ReconcileHandler) Run(c *gin.Context) {
	integrationID, err := uuid.Parse(c.Param("integrationID"))
	if err != nil {
		h.BadRequest(c, "invalid integration ID")
		return
	}

	result, err := h.matcher.Run(c.Request.Context(), integrationID)
	if err != nil {
		if shared.IsNotFound(err) {
			h.NotFound(c, "integration not found")
			return
		}
		h.InternalError(c, "reconciliation failed")
		return
	}

	h.Success(c, ReconcileResponse{
		IntegrationID: integrationID.String(),
		Scanned:       result.Scanned,
		Mapped:        result.Mapped,
	})
}
