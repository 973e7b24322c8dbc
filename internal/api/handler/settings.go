package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/store"
)

// sensitive setting keys never leave the server
var hiddenSettingKeys = map[string]bool{
	model.SettingKeyJWTSecret:         true,
	model.SettingKeyAdminPasswordHash: true,
}

// SettingsHandler exposes runtime system settings.
type SettingsHandler struct {
	store store.Store
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(s store.Store) *SettingsHandler {
	return &SettingsHandler{store: s}
}

func validCategory(category string) bool {
	for _, c := range model.AllSettingCategories() {
		if string(c) == category {
			return true
		}
	}
	return false
}

func filterHidden(settings []model.SystemSetting) []model.SystemSetting {
	visible := make([]model.SystemSetting, 0, len(settings))
	for _, s := range settings {
		if !hiddenSettingKeys[s.Key] {
			visible = append(visible, s)
		}
	}
	return visible
}

// GetAllSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetAllSettings(c *gin.Context) {
	settings, err := h.store.Settings().GetAll()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings": filterHidden(settings),
	})
}

// GetSettingsByCategory handles GET /api/v1/settings/:category
func (h *SettingsHandler) GetSettingsByCategory(c *gin.Context) {
	category := c.Param("category")
	if !validCategory(category) {
		respondValidation(c, "Invalid settings category")
		return
	}

	settings, err := h.store.Settings().GetByCategory(category)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings": filterHidden(settings),
	})
}

// UpdateSettingsRequest represents the settings update request body
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

// UpdateSettingsByCategory handles PUT /api/v1/settings/:category
func (h *SettingsHandler) UpdateSettingsByCategory(c *gin.Context) {
	category := c.Param("category")
	if !validCategory(category) {
		respondValidation(c, "Invalid settings category")
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	batch := make([]model.SystemSetting, 0, len(req.Settings))
	for key, value := range req.Settings {
		if hiddenSettingKeys[key] {
			respondValidation(c, "Setting '"+key+"' cannot be changed through this endpoint")
			return
		}
		batch = append(batch, model.SystemSetting{
			Category:  category,
			Key:       key,
			Value:     value,
			ValueType: string(model.SettingValueTypeString),
		})
	}

	if err := h.store.Settings().BatchUpsert(batch); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}
