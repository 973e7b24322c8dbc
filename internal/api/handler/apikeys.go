package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gamelens/gamelens/internal/provider"
	"github.com/gamelens/gamelens/internal/vault"
	"github.com/gamelens/gamelens/pkg/logger"
)

// KeyHandler manages stored provider credentials. Plaintext keys are accepted
// on create only; every read path returns the masked form.
type KeyHandler struct {
	creds *vault.Credentials
}

// NewKeyHandler creates a new key handler
func NewKeyHandler(creds *vault.Credentials) *KeyHandler {
	return &KeyHandler{creds: creds}
}

// ListKeys handles GET /api/v1/keys
func (h *KeyHandler) ListKeys(c *gin.Context) {
	keys, err := h.creds.List()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"keys": keys,
	})
}

// CreateKeyRequest represents the create-key request body
type CreateKeyRequest struct {
	Provider string `json:"provider" binding:"required"`
	Key      string `json:"key" binding:"required"`
	Name     string `json:"name"`
	Notes    string `json:"notes"`
}

// CreateKey handles POST /api/v1/keys
func (h *KeyHandler) CreateKey(c *gin.Context) {
	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	key, err := h.creds.Store(req.Provider, req.Key, req.Name, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("API key stored", zap.String("provider", req.Provider))
	c.JSON(http.StatusCreated, key)
}

// DeleteKey handles DELETE /api/v1/keys/:id
func (h *KeyHandler) DeleteKey(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondValidation(c, "Invalid key id")
		return
	}

	if err := h.creds.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Key deleted"})
}

// ListProviders handles GET /api/v1/providers.
// Returns the registered provider adapter names.
func (h *KeyHandler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": provider.List(),
	})
}
