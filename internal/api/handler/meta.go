package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamelens/gamelens/consts"
	"github.com/gamelens/gamelens/internal/database"
	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/store"
)

// MetaHandler serves application identity and status.
type MetaHandler struct {
	subtitle string
	store    store.Store
}

// NewMetaHandler creates a new meta handler
func NewMetaHandler(subtitle string, s store.Store) *MetaHandler {
	return &MetaHandler{subtitle: subtitle, store: s}
}

// GetAppMeta handles GET /api/v1/meta
func (h *MetaHandler) GetAppMeta(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":     consts.ProjectName,
		"subtitle": h.subtitle,
		"version":  consts.Version,
	})
}

// GetStatus handles GET /api/v1/status.
// Aggregate counts plus database health for the dashboard.
func (h *MetaHandler) GetStatus(c *gin.Context) {
	games, err := h.store.Game().CountAll()
	if err != nil {
		respondError(c, err)
		return
	}
	reviews, err := h.store.Review().CountAll()
	if err != nil {
		respondError(c, err)
		return
	}
	catalogApps, err := h.store.Catalog().Count()
	if err != nil {
		respondError(c, err)
		return
	}
	jobsRunning, err := h.store.Job().CountByStatus(model.JobStatusRunning)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"games":          games,
		"reviews":        reviews,
		"catalog_apps":   catalogApps,
		"jobs_running":   jobsRunning,
		"database_ok":    database.HealthCheck() == nil,
		"uptime_seconds": int64(consts.GetUptime().Seconds()),
	})
}
