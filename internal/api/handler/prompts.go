package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamelens/gamelens/internal/prompt"
)

// PromptHandler manages the prompt library.
type PromptHandler struct {
	prompts *prompt.Store
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(prompts *prompt.Store) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

// ListPrompts handles GET /api/v1/prompts
func (h *PromptHandler) ListPrompts(c *gin.Context) {
	names, err := h.prompts.List()
	if err != nil {
		respondError(c, err)
		return
	}

	active, err := h.prompts.ActiveName()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prompts": names,
		"active":  active,
	})
}

// GetPrompt handles GET /api/v1/prompts/:name
func (h *PromptHandler) GetPrompt(c *gin.Context) {
	name := c.Param("name")

	content, err := h.prompts.Get(name)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":    name,
		"content": content,
	})
}

// SavePromptRequest represents the save-prompt request body
type SavePromptRequest struct {
	Content string `json:"content" binding:"required"`
}

// SavePrompt handles PUT /api/v1/prompts/:name
func (h *PromptHandler) SavePrompt(c *gin.Context) {
	name := c.Param("name")

	var req SavePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	if err := h.prompts.Save(name, req.Content); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Prompt saved"})
}

// ActivatePrompt handles POST /api/v1/prompts/:name/activate
func (h *PromptHandler) ActivatePrompt(c *gin.Context) {
	name := c.Param("name")

	if err := h.prompts.SetActive(name); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Prompt activated"})
}

// DeletePrompt handles DELETE /api/v1/prompts/:name
func (h *PromptHandler) DeletePrompt(c *gin.Context) {
	name := c.Param("name")

	if err := h.prompts.Delete(name); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Prompt deleted"})
}
