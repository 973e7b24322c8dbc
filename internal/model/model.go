// Package model defines the data models for the application.
// All models use GORM for ORM operations with SQLite database.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringArray is a custom type for storing string arrays in SQLite
type StringArray []string

// Value implements driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	return string(data), err
}

// Scan implements sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	}
	return json.Unmarshal(bytes, s)
}

// JSONMap is a custom type for storing JSON maps in SQLite
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	data, err := json.Marshal(j)
	return string(data), err
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	}
	return json.Unmarshal(bytes, j)
}

// ReviewType represents the recommendation polarity of a review
type ReviewType string

const (
	ReviewTypePositive ReviewType = "positive"
	ReviewTypeNegative ReviewType = "negative"
)

// Game represents a tracked title on the external store.
// One row per app_id; deleting a game cascades to its reviews.
type Game struct {
	AppID uint   `gorm:"primarykey" json:"app_id"`
	Name  string `gorm:"size:512;not null" json:"name"`

	AddedAt       time.Time  `json:"added_at"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`

	// Relations
	Reviews []Review `gorm:"foreignKey:AppID;constraint:OnDelete:CASCADE" json:"-"`
}

// Review represents a single user review harvested from the store API.
// Identified by the external review id; insertions are idempotent.
type Review struct {
	ReviewID string `gorm:"primarykey;size:32" json:"review_id"`
	AppID    uint   `gorm:"not null;index" json:"app_id"`

	ReviewText string    `gorm:"type:text" json:"review_text"`
	ReviewDate time.Time `gorm:"index" json:"review_date"` // naive UTC, from timestamp_created

	// playtime_forever arrives in minutes; stored as hours
	PlaytimeHours float64 `json:"playtime_hours"`

	ReviewType      ReviewType `gorm:"size:16;index" json:"review_type"`
	Language        string     `gorm:"size:64;index" json:"language"` // lowercased
	EarlyAccess     bool       `json:"early_access"`
	ReceivedForFree bool       `json:"received_for_free"`

	// Extended vote / author metadata
	TimestampUpdated  int64   `json:"timestamp_updated"`
	VotesHelpful      int64   `json:"votes_helpful"`
	WeightedVoteScore float64 `json:"weighted_vote_score"`
	CommentCount      int64   `json:"comment_count"`
	SteamPurchase     bool    `json:"steam_purchase"`

	AuthorNumGamesOwned        int64 `json:"author_num_games_owned"`
	AuthorNumReviews           int64 `json:"author_num_reviews"`
	AuthorPlaytimeLastTwoWeeks int64 `json:"author_playtime_last_two_weeks"` // minutes
	AuthorLastPlayed           int64 `json:"author_last_played"`             // unix seconds

	ScrapedAt time.Time `json:"scraped_at"`
}

// ScrapeCursor stores the last pagination token per (app_id, params_hash).
// params_hash namespaces cursors by the filter parameters that affect traversal.
type ScrapeCursor struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AppID      uint   `gorm:"not null;uniqueIndex:idx_app_params,priority:1" json:"app_id"`
	ParamsHash string `gorm:"size:64;not null;uniqueIndex:idx_app_params,priority:2" json:"params_hash"`

	Cursor string `gorm:"type:text;not null" json:"cursor"`
}

// SteamApp is one entry of the title catalog used for name search.
// Populated by the applist backfill; searched via the FTS index.
type SteamApp struct {
	AppID uint   `gorm:"primarykey" json:"app_id"`
	Name  string `gorm:"size:512;not null;index" json:"name"`
}

// AllModels returns all models for auto-migration
func AllModels() []interface{} {
	models := []interface{}{
		&Game{},
		&Review{},
		&ScrapeCursor{},
		&SteamApp{},
	}
	// Add analysis models
	models = append(models, AnalysisAllModels()...)
	// Add settings models
	models = append(models, SettingsAllModels()...)
	return models
}
