package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamelens/gamelens/internal/analysis"
	"github.com/gamelens/gamelens/internal/store"
)

// AnalysisHandler controls analysis jobs and the review preview.
type AnalysisHandler struct {
	orch  *analysis.Orchestrator
	store store.Store
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(orch *analysis.Orchestrator, s store.Store) *AnalysisHandler {
	return &AnalysisHandler{orch: orch, store: s}
}

// StartJob handles POST /api/v1/analysis/jobs
func (h *AnalysisHandler) StartJob(c *gin.Context) {
	var req analysis.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	jobID, err := h.orch.Start(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
	})
}

// ListJobs handles GET /api/v1/analysis/jobs
func (h *AnalysisHandler) ListJobs(c *gin.Context) {
	limit, offset := parsePagination(c, 20, 100)
	status := c.Query("status")

	jobs, total, err := h.store.Job().List(status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": total,
	})
}

// GetJob handles GET /api/v1/analysis/jobs/:id
func (h *AnalysisHandler) GetJob(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondValidation(c, "Invalid job id")
		return
	}

	job, err := h.store.Job().GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	tokens, err := h.store.Job().SumTokensByJob(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job":          job,
		"total_tokens": tokens,
	})
}

// DeleteJob handles DELETE /api/v1/analysis/jobs/:id
func (h *AnalysisHandler) DeleteJob(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondValidation(c, "Invalid job id")
		return
	}

	if err := h.store.Job().Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job deleted"})
}

// ListJobResults handles GET /api/v1/analysis/jobs/:id/results
func (h *AnalysisHandler) ListJobResults(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondValidation(c, "Invalid job id")
		return
	}
	limit, offset := parsePagination(c, 50, 500)
	status := c.Query("status")

	results, total, err := h.store.Job().ListResultsByJob(id, status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   total,
	})
}

// PreviewRequest represents the preview request body
type PreviewRequest struct {
	Filters analysis.Filters `json:"filters"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// Preview handles POST /api/v1/analysis/preview.
// Returns the reviews the filters would select, without dispatching anything.
func (h *AnalysisHandler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	reviews, total, err := h.orch.Preview(req.Filters, req.Limit, req.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   total,
	})
}

// BackfillRequest represents the mapping backfill request body
type BackfillRequest struct {
	Limit int `json:"limit"`
}

// Backfill handles POST /api/v1/analysis/backfill.
// Re-runs the response mapper over results with unmapped raw output.
func (h *AnalysisHandler) Backfill(c *gin.Context) {
	var req BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	updated, err := h.orch.Backfill(req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updated": updated,
	})
}
