package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamelens/gamelens/internal/scraper"
)

// ScrapeHandler controls the review ingestion engine.
type ScrapeHandler struct {
	engine *scraper.Engine
}

// NewScrapeHandler creates a new scrape handler
func NewScrapeHandler(engine *scraper.Engine) *ScrapeHandler {
	return &ScrapeHandler{engine: engine}
}

// StartScrape handles POST /api/v1/scrape/start.
// Returns 409 when a run is already active.
func (h *ScrapeHandler) StartScrape(c *gin.Context) {
	var req scraper.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	if err := h.engine.Start(req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Ingestion started",
	})
}

// StopScrape handles POST /api/v1/scrape/stop.
// The stop is cooperative; the in-flight batch is still saved.
func (h *ScrapeHandler) StopScrape(c *gin.Context) {
	h.engine.Stop()
	c.JSON(http.StatusOK, gin.H{
		"message": "Stop requested",
	})
}

// GetScrapeStatus handles GET /api/v1/scrape/status
func (h *ScrapeHandler) GetScrapeStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Status())
}
