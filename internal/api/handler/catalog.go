package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamelens/gamelens/internal/catalog"
	"github.com/gamelens/gamelens/internal/store"
)

// CatalogHandler exposes the local title catalog and its backfill.
type CatalogHandler struct {
	svc   *catalog.Service
	store store.Store
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(svc *catalog.Service, s store.Store) *CatalogHandler {
	return &CatalogHandler{svc: svc, store: s}
}

// SearchCatalog handles GET /api/v1/catalog/search.
// Numeric queries match app ids exactly; text queries run a prefix full-text
// match with a substring fallback.
func (h *CatalogHandler) SearchCatalog(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondValidation(c, "q is required")
		return
	}
	limit, _ := parsePagination(c, 20, 100)

	results, err := h.store.Catalog().Search(query, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// GetCatalogStatus handles GET /api/v1/catalog/status
func (h *CatalogHandler) GetCatalogStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

// TriggerBackfill handles POST /api/v1/catalog/backfill.
// Returns 409 when a backfill is already running.
func (h *CatalogHandler) TriggerBackfill(c *gin.Context) {
	if err := h.svc.Trigger(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Catalog backfill started",
	})
}
