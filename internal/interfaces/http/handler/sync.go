package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	syncapp "github.com/catsync/backend/internal/application/sync"
	syncdomain "github.com/catsync/backend/internal/domain/sync"
)

// SyncHandler handles sync trigger and run history API endpoints
type SyncHandler struct {
	BaseHandler
	orchestrator *syncapp.SyncOrchestrator
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(orchestrator *syncapp.SyncOrchestrator) *SyncHandler {
	return &SyncHandler{orchestrator: orchestrator}
}

// TriggerSyncRequest represents a request to start a sync run
type TriggerSyncRequest struct {
	Mode string `json:"mode" binding:"omitempty,oneof=incremental full forced"`
}

// SyncRunResponse represents one sync run
type SyncRunResponse struct {
	ID           string `json:"id"`
	VendorCode   string `json:"vendor_code"`
	Mode         string `json:"mode"`
	Status       string `json:"status"`
	Seen         int    `json:"seen"`
	Created      int    `json:"created"`
	Updated      int    `json:"updated"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	ErrorMessage string `json:"error_message,omitempty"`
	StartedAt    string `json:"started_at,omitempty"`
	FinishedAt   string `json:"finished_at,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/vendors/:code/sync")
	{
		group.POST("", h.Trigger)
		group.GET("/runs", h.ListRuns)
	}
}

// Trigger starts a sync run for the tenant's vendor. The run executes within
// the request; long feeds are expected to be triggered by the scheduler
// instead.
func (h *SyncHandler) Trigger(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req TriggerSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}
	mode := syncdomain.TriggerMode(req.Mode)
	if req.Mode == "" {
		mode = syncdomain.TriggerModeIncremental
	}

	run, err := h.orchestrator.Run(c.Request.Context(), tenantID, c.Param("code"), mode)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toSyncRunResponse(run))
}

// ListRuns returns recent sync runs for the vendor, newest first
func (h *SyncHandler) ListRuns(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.BadRequest(c, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	runs, err := h.orchestrator.History(c.Request.Context(), tenantID, c.Param("code"), limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	responses := make([]SyncRunResponse, 0, len(runs))
	for i := range runs {
		responses = append(responses, toSyncRunResponse(&runs[i]))
	}
	h.Success(c, responses)
}

func toSyncRunResponse(run *syncdomain.SyncRun) SyncRunResponse {
	resp := SyncRunResponse{
		ID:           run.ID.String(),
		VendorCode:   run.VendorCode,
		Mode:         string(run.Mode),
		Status:       string(run.Status),
		Seen:         run.Counts.Seen,
		Created:      run.Counts.Created,
		Updated:      run.Counts.Updated,
		Skipped:      run.Counts.Skipped,
		Failed:       run.Counts.Failed,
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    run.CreatedAt.Format(time.RFC3339),
	}
	if run.StartedAt != nil {
		resp.StartedAt = run.StartedAt.Format(time.RFC3339)
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return resp
}
