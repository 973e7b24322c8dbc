// Package model defines the data models for the application.
// This file defines system settings and credential models.
package model

import (
	"time"

	"gorm.io/gorm"
)

// SettingCategory represents the category of a system setting
type SettingCategory string

const (
	SettingCategoryApp      SettingCategory = "app"      // Application settings
	SettingCategoryScraper  SettingCategory = "scraper"  // Scraper defaults snapshot
	SettingCategoryAnalysis SettingCategory = "analysis" // Analysis defaults, active prompt pointer
	SettingCategoryAuth     SettingCategory = "auth"     // Admin auth material (JWT secret)
)

// AllSettingCategories returns all valid setting categories
func AllSettingCategories() []SettingCategory {
	return []SettingCategory{
		SettingCategoryApp,
		SettingCategoryScraper,
		SettingCategoryAnalysis,
		SettingCategoryAuth,
	}
}

// Well-known setting keys
const (
	// SettingKeyActivePrompt points at the active prompt file name
	SettingKeyActivePrompt = "active_prompt"
	// SettingKeyJWTSecret holds the generated admin JWT signing secret
	SettingKeyJWTSecret = "jwt_secret"
	// SettingKeyAdminPasswordHash holds the bcrypt hash of the admin password
	SettingKeyAdminPasswordHash = "admin_password_hash"
)

// SettingValueType represents the type of a setting value
type SettingValueType string

const (
	SettingValueTypeString  SettingValueType = "string"
	SettingValueTypeNumber  SettingValueType = "number"
	SettingValueTypeBoolean SettingValueType = "boolean"
	SettingValueTypeArray   SettingValueType = "array"
	SettingValueTypeObject  SettingValueType = "object"
)

// SystemSetting stores a single system configuration item.
// Configuration is stored in category + key format for flexible querying.
type SystemSetting struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Category groups related settings together
	// Valid values: app, scraper, analysis, auth
	Category string `gorm:"size:50;not null;index;uniqueIndex:idx_category_key,priority:1" json:"category"`

	// Key is the unique identifier within a category
	Key string `gorm:"size:100;not null;uniqueIndex:idx_category_key,priority:2" json:"key"`

	// Value stores the setting value as JSON string
	Value string `gorm:"type:text;not null" json:"value"`

	// ValueType indicates the type of the value for proper parsing
	ValueType string `gorm:"size:20;not null;default:string" json:"value_type"`
}

// APIKey stores one encrypted provider credential.
// The plaintext never leaves the vault; MaskedKey is display-only.
type APIKey struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Provider string `gorm:"size:100;not null;index" json:"provider"`

	// EncryptedKey is the vault-sealed credential (base64)
	EncryptedKey string `gorm:"type:text;not null" json:"-"`

	// MaskedKey is the padded last-6 display form, e.g. "******Ab12Cd"
	MaskedKey string `gorm:"size:32;not null" json:"masked_key"`

	Name  string `gorm:"size:255" json:"name,omitempty"`
	Notes string `gorm:"type:text" json:"notes,omitempty"`
}

// SettingsAllModels returns all settings-related models for auto-migration
func SettingsAllModels() []interface{} {
	return []interface{}{
		&SystemSetting{},
		&APIKey{},
	}
}
