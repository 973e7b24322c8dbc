// Package store provides test utilities for database testing.
package store

import (
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/gamelens/gamelens/internal/database"
	"github.com/gamelens/gamelens/internal/model"
)

// SetupTestDB creates a temporary SQLite database for testing.
// It returns a Store instance and a cleanup function.
// The cleanup function should be called with defer in tests.
func SetupTestDB(t *testing.T) (Store, func()) {
	// Reset database state to allow re-initialization
	database.Reset()

	// Create temporary database file
	tmpFile, err := os.CreateTemp("", "test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	// Initialize database with temp path
	if err := database.InitWithPath(tmpPath); err != nil {
		os.Remove(tmpPath)
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	db := database.Get()
	store := NewStore(db)

	// Cleanup function
	cleanup := func() {
		database.Close()
		database.Reset()
		os.Remove(tmpPath)
	}

	return store, cleanup
}

// SetupTestDBWithModels creates a temporary SQLite database and runs migrations.
// This is a convenience function that ensures all models are migrated.
func SetupTestDBWithModels(t *testing.T) (*gorm.DB, func()) {
	// Reset database state
	database.Reset()

	// Create temporary database file
	tmpFile, err := os.CreateTemp("", "test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	// Initialize database
	if err := database.InitWithPath(tmpPath); err != nil {
		os.Remove(tmpPath)
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	db := database.Get()

	// Ensure all models are migrated
	models := model.AllModels()
	if err := db.AutoMigrate(models...); err != nil {
		database.Close()
		database.Reset()
		os.Remove(tmpPath)
		t.Fatalf("Failed to migrate models: %v", err)
	}

	// Cleanup function
	cleanup := func() {
		database.Close()
		database.Reset()
		os.Remove(tmpPath)
	}

	return db, cleanup
}

// CreateTestGame creates a test Game with default values.
// Fields can be overridden by passing a function that modifies the game.
func CreateTestGame(t *testing.T, store Store, overrides ...func(*model.Game)) *model.Game {
	game := &model.Game{
		AppID:   440,
		Name:    "Team Fortress 2",
		AddedAt: time.Now().UTC(),
	}

	// Apply overrides
	for _, override := range overrides {
		override(game)
	}

	if err := store.Game().Upsert(game); err != nil {
		t.Fatalf("Failed to create test game: %v", err)
	}

	return game
}

// CreateTestReview creates a test Review with default values.
// Fields can be overridden by passing a function that modifies the review.
func CreateTestReview(t *testing.T, store Store, appID uint, overrides ...func(*model.Review)) *model.Review {
	// Generate unique ids to avoid primary key collisions across calls
	uniqueID := fmt.Sprintf("%s-%s", t.Name(), time.Now().Format("150405.000000"))
	if len(uniqueID) > 32 {
		uniqueID = uniqueID[len(uniqueID)-32:]
	}

	review := &model.Review{
		ReviewID:      uniqueID,
		AppID:         appID,
		ReviewText:    "Great game, would play again.",
		ReviewDate:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		PlaytimeHours: 12.5,
		ReviewType:    model.ReviewTypePositive,
		Language:      "english",
		ScrapedAt:     time.Now().UTC(),
	}

	// Apply overrides
	for _, override := range overrides {
		override(review)
	}

	if _, err := store.Review().InsertBatch([]model.Review{*review}); err != nil {
		t.Fatalf("Failed to create test review: %v", err)
	}

	return review
}

// CreateTestJob creates a test AnalysisJob with default values.
func CreateTestJob(t *testing.T, store Store, overrides ...func(*model.AnalysisJob)) *model.AnalysisJob {
	job := &model.AnalysisJob{
		Status: model.JobStatusPending,
		Settings: model.JSONMap{
			"provider": "openai",
			"model":    "gpt-4o-mini",
		},
	}

	// Apply overrides
	for _, override := range overrides {
		override(job)
	}

	if err := store.Job().Create(job); err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}
