package handler

import (
	"github.com/channelsync/backend/internal/application/importer"
	"github.com/channelsync/backend/internal/domain/imports"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ImportHandler exposes import runs: creating a run, submitting batches of
// channel-normalized rows against it, and polling its counters.
type ImportHandler struct {
	BaseHandler
	runs    imports.ImportRunRepository
	service *importer.Service
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(runs imports.ImportRunRepository, service *importer.Service) *ImportHandler {
	return &ImportHandler{runs: runs, service: service}
}

// CreateImportRequest carries the parameters of a new import run
type CreateImportRequest struct {
	TenantID      string `json:"tenant_id" binding:"required,uuid"`
	IntegrationID string `json:"integration_id" binding:"required,uuid"`
	UpdateOnly    bool   `json:"update_only"`
}

// ImportRunResponse represents one import run in API responses
type ImportRunResponse struct {
	ID            string `json:"id"`
	IntegrationID string `json:"integration_id"`
	Status        string `json:"status"`
	UpdateOnly    bool   `json:"update_only"`
	CreatedCount  int    `json:"created_count"`
	UpdatedCount  int    `json:"updated_count"`
	SkippedCount  int    `json:"skipped_count"`
	ErrorCount    int    `json:"error_count"`
	LastError     string `json:"last_error,omitempty"`
}

func toImportRunResponse(run *imports.ImportRun) ImportRunResponse {
	return ImportRunResponse{
		ID:            run.ID.String(),
		IntegrationID: run.IntegrationID.String(),
		Status:        string(run.Status),
		UpdateOnly:    run.UpdateOnly,
		CreatedCount:  run.CreatedCount,
		UpdatedCount:  run.UpdatedCount,
		SkippedCount:  run.SkippedCount,
		ErrorCount:    run.ErrorCount,
		LastError:     run.LastError,
	}
}

// CreateRun creates a pending import run
func (h *ImportHandler) CreateRun(c *gin.Context) {
	var req CreateImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	run := imports.NewImportRun(uuid.MustParse(req.TenantID), uuid.MustParse(req.IntegrationID), req.UpdateOnly)
	if err := h.runs.Save(c.Request.Context(), run); err != nil {
		h.InternalError(c, "failed to create import run")
		return
	}

	h.Accepted(c, toImportRunResponse(run))
}

// ImportProductItem is one product row in a batch submission
type ImportProductItem struct {
	SKU        string `json:"sku" binding:"required"`
	Name       string `json:"name"`
	Active     *bool  `json:"active"`
	ParentSKU  string `json:"parent_sku"`
	ParentName string `json:"parent_name"`
}

// SubmitProductsRequest carries a batch of product rows
type SubmitProductsRequest struct {
	Items []ImportProductItem `json:"items" binding:"required,min=1,dive"`
}

// ImportSelectValueItem is one property value row in a batch submission
type ImportSelectValueItem struct {
	Property string `json:"property" binding:"required"`
	Value    string `json:"value" binding:"required"`
	Language string `json:"language"`
}

// SubmitSelectValuesRequest carries a batch of property value rows
type SubmitSelectValuesRequest struct {
	Items []ImportSelectValueItem `json:"items" binding:"required,min=1,dive"`
}

// SubmitProducts runs a batch of product rows against a pending run
func (h *ImportHandler) SubmitProducts(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid run ID")
		return
	}

	var req SubmitProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items := make([]importer.ProductItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, importer.ProductItem{
			SKU:        item.SKU,
			Name:       item.Name,
			Active:     item.Active,
			ParentSKU:  item.ParentSKU,
			ParentName: item.ParentName,
		})
	}

	run, err := h.service.ImportProducts(c.Request.Context(), runID, items)
	if err != nil {
		h.respondRunError(c, err)
		return
	}
	h.Success(c, toImportRunResponse(run))
}

// SubmitSelectValues runs a batch of property value rows against a pending
// run
func (h *ImportHandler) SubmitSelectValues(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid run ID")
		return
	}

	var req SubmitSelectValuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items := make([]importer.SelectValueItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, importer.SelectValueItem{
			Property: item.Property,
			Value:    item.Value,
			Language: item.Language,
		})
	}

	run, err := h.service.ImportSelectValues(c.Request.Context(), runID, items)
	if err != nil {
		h.respondRunError(c, err)
		return
	}
	h.Success(c, toImportRunResponse(run))
}

func (h *ImportHandler) respondRunError(c *gin.Context, err error) {
	switch {
	case shared.IsNotFound(err):
		h.NotFound(c, "import run not found")
	case shared.IsInvalidInput(err):
		h.BadRequest(c, err.Error())
	default:
		h.InternalError(c, "failed to process import batch")
	}
}

// GetRun returns one import run with its counters
func (h *ImportHandler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid run ID")
		return
	}

	run, err := h.runs.FindByID(c.Request.Context(), runID)
	if err != nil {
		if shared.IsNotFound(err) {
			h.NotFound(c, "import run not found")
			return
		}
		h.InternalError(c, "failed to load import run")
		return
	}

	h.Success(c, toImportRunResponse(run))
}
