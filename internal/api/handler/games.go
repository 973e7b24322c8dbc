package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/steam"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/logger"
)

// GameHandler manages the tracked game list.
type GameHandler struct {
	store store.Store
	steam *steam.Client
}

// NewGameHandler creates a new game handler
func NewGameHandler(s store.Store, client *steam.Client) *GameHandler {
	return &GameHandler{store: s, steam: client}
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(c *gin.Context) {
	limit, offset := parsePagination(c, 50, 200)

	games, total, err := h.store.Game().List(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"games": games,
		"total": total,
	})
}

// AddGameRequest represents the add-game request body.
// Name is optional; when empty it is resolved upstream.
type AddGameRequest struct {
	AppID uint   `json:"app_id" binding:"required"`
	Name  string `json:"name"`
}

// AddGame handles POST /api/v1/games
func (h *GameHandler) AddGame(c *gin.Context) {
	var req AddGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	name := req.Name
	if name == "" {
		resolved, err := h.steam.GetAppName(c.Request.Context(), req.AppID)
		if err != nil {
			respondError(c, err)
			return
		}
		name = resolved
	}

	game := &model.Game{
		AppID:   req.AppID,
		Name:    name,
		AddedAt: time.Now().UTC(),
	}
	if err := h.store.Game().Upsert(game); err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Game added", zap.Uint("app_id", game.AppID), zap.String("name", game.Name))
	c.JSON(http.StatusCreated, game)
}

// GetGame handles GET /api/v1/games/:app_id
func (h *GameHandler) GetGame(c *gin.Context) {
	appID, ok := parseUintParam(c, "app_id")
	if !ok {
		respondValidation(c, "Invalid app_id")
		return
	}

	game, err := h.store.Game().GetByID(appID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// DeleteGame handles DELETE /api/v1/games/:app_id.
// The game's reviews go with it via cascade.
func (h *GameHandler) DeleteGame(c *gin.Context) {
	appID, ok := parseUintParam(c, "app_id")
	if !ok {
		respondValidation(c, "Invalid app_id")
		return
	}

	if err := h.store.Game().Delete(appID); err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Game removed", zap.Uint("app_id", appID))
	c.JSON(http.StatusOK, gin.H{"message": "Game removed"})
}

// SearchStore handles GET /api/v1/games/store-search.
// Proxies the upstream store search for the add-game flow.
func (h *GameHandler) SearchStore(c *gin.Context) {
	term := c.Query("term")
	if term == "" {
		respondValidation(c, "term is required")
		return
	}

	items, err := h.steam.SearchApps(c.Request.Context(), term)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}
