package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/gamelens/gamelens/internal/model"
)

func boolPtr(b bool) *bool           { return &b }
func floatPtr(f float64) *float64    { return &f }
func timePtr(t time.Time) *time.Time { return &t }

// TestReviewStore_InsertBatch tests batch insert with duplicate skipping
func TestReviewStore_InsertBatch(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	CreateTestGame(t, store)

	reviews := []model.Review{
		{ReviewID: "r1", AppID: 440, ReviewText: "first", ReviewDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ReviewID: "r2", AppID: 440, ReviewText: "second", ReviewDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	inserted, err := store.Review().InsertBatch(reviews)
	if err != nil {
		t.Fatalf("InsertBatch() failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("Expected 2 inserted, got %d", inserted)
	}

	// Re-inserting the same batch plus one new review inserts only the new one
	reviews = append(reviews, model.Review{
		ReviewID: "r3", AppID: 440, ReviewText: "third",
		ReviewDate: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	inserted, err = store.Review().InsertBatch(reviews)
	if err != nil {
		t.Fatalf("InsertBatch() with duplicates failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("Expected 1 inserted on re-run, got %d", inserted)
	}

	count, err := store.Review().CountByApp(440)
	if err != nil {
		t.Fatalf("CountByApp() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 stored reviews, got %d", count)
	}
}

// TestReviewStore_InsertBatchEmpty tests that empty batches are a no-op
func TestReviewStore_InsertBatchEmpty(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	inserted, err := store.Review().InsertBatch(nil)
	if err != nil {
		t.Fatalf("InsertBatch(nil) failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("Expected 0 inserted, got %d", inserted)
	}
}

// TestReviewStore_List tests filtered listing with pagination
func TestReviewStore_List(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	CreateTestGame(t, store)

	reviews := []model.Review{
		{
			ReviewID: "pos-en", AppID: 440, ReviewType: model.ReviewTypePositive,
			Language: "english", PlaytimeHours: 50,
			ReviewDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ReviewID: "neg-en", AppID: 440, ReviewType: model.ReviewTypeNegative,
			Language: "english", PlaytimeHours: 2, EarlyAccess: true,
			ReviewDate: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			ReviewID: "pos-zh", AppID: 440, ReviewType: model.ReviewTypePositive,
			Language: "schinese", PlaytimeHours: 10, ReceivedForFree: true,
			ReviewDate: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	if _, err := store.Review().InsertBatch(reviews); err != nil {
		t.Fatalf("InsertBatch() failed: %v", err)
	}

	tests := []struct {
		name     string
		filter   ReviewFilter
		expected []string
	}{
		{
			name:     "by app only",
			filter:   ReviewFilter{AppID: 440},
			expected: []string{"pos-zh", "neg-en", "pos-en"}, // review_date DESC
		},
		{
			name:     "by review type",
			filter:   ReviewFilter{AppID: 440, ReviewType: model.ReviewTypePositive},
			expected: []string{"pos-zh", "pos-en"},
		},
		{
			name:     "by language",
			filter:   ReviewFilter{AppID: 440, Language: "schinese"},
			expected: []string{"pos-zh"},
		},
		{
			name:     "language all matches everything",
			filter:   ReviewFilter{AppID: 440, Language: "all"},
			expected: []string{"pos-zh", "neg-en", "pos-en"},
		},
		{
			name:     "by early access",
			filter:   ReviewFilter{AppID: 440, EarlyAccess: boolPtr(true)},
			expected: []string{"neg-en"},
		},
		{
			name:     "by received for free",
			filter:   ReviewFilter{AppID: 440, ReceivedForFree: boolPtr(false)},
			expected: []string{"neg-en", "pos-en"},
		},
		{
			name:     "by playtime range",
			filter:   ReviewFilter{AppID: 440, MinPlaytime: floatPtr(5), MaxPlaytime: floatPtr(20)},
			expected: []string{"pos-zh"},
		},
		{
			name: "by date range",
			filter: ReviewFilter{
				AppID:     440,
				StartDate: timePtr(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)),
				EndDate:   timePtr(time.Date(2024, 3, 2, 23, 59, 59, 0, time.UTC)),
			},
			expected: []string{"neg-en"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := store.Review().List(tt.filter, 100, 0)
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			if total != int64(len(tt.expected)) {
				t.Errorf("Expected total %d, got %d", len(tt.expected), total)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d reviews, got %d", len(tt.expected), len(got))
			}
			for i, id := range tt.expected {
				if got[i].ReviewID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ReviewID)
				}
			}
		})
	}
}

// TestReviewStore_ListPagination tests limit/offset behavior
func TestReviewStore_ListPagination(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	CreateTestGame(t, store)

	var reviews []model.Review
	for i := 0; i < 5; i++ {
		reviews = append(reviews, model.Review{
			ReviewID:   fmt.Sprintf("page-%d", i),
			AppID:      440,
			ReviewDate: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	if _, err := store.Review().InsertBatch(reviews); err != nil {
		t.Fatalf("InsertBatch() failed: %v", err)
	}

	got, total, err := store.Review().List(ReviewFilter{AppID: 440}, 2, 2)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 reviews, got %d", len(got))
	}
	// review_date DESC: page-4, page-3 | page-2, page-1 | page-0
	if got[0].ReviewID != "page-2" || got[1].ReviewID != "page-1" {
		t.Errorf("Unexpected page contents: %s, %s", got[0].ReviewID, got[1].ReviewID)
	}
}

// TestReviewStore_LatestReviewDate tests the resume-threshold query
func TestReviewStore_LatestReviewDate(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	CreateTestGame(t, store)

	// No reviews stored yet
	latest, err := store.Review().LatestReviewDate(440)
	if err != nil {
		t.Fatalf("LatestReviewDate() failed: %v", err)
	}
	if latest != nil {
		t.Errorf("Expected nil for empty app, got %v", latest)
	}

	newest := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	reviews := []model.Review{
		{ReviewID: "old", AppID: 440, ReviewDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ReviewID: "new", AppID: 440, ReviewDate: newest},
		{ReviewID: "mid", AppID: 440, ReviewDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	if _, err := store.Review().InsertBatch(reviews); err != nil {
		t.Fatalf("InsertBatch() failed: %v", err)
	}

	latest, err = store.Review().LatestReviewDate(440)
	if err != nil {
		t.Fatalf("LatestReviewDate() failed: %v", err)
	}
	if latest == nil {
		t.Fatal("Expected a latest date, got nil")
	}
	if !latest.Equal(newest) {
		t.Errorf("Expected %v, got %v", newest, *latest)
	}
}

// TestReviewStore_DeleteByApp tests per-app deletion
func TestReviewStore_DeleteByApp(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	CreateTestGame(t, store)
	CreateTestGame(t, store, func(g *model.Game) {
		g.AppID = 570
		g.Name = "Dota 2"
	})

	reviews := []model.Review{
		{ReviewID: "tf-1", AppID: 440, ReviewDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ReviewID: "dota-1", AppID: 570, ReviewDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	if _, err := store.Review().InsertBatch(reviews); err != nil {
		t.Fatalf("InsertBatch() failed: %v", err)
	}

	if err := store.Review().DeleteByApp(440); err != nil {
		t.Fatalf("DeleteByApp() failed: %v", err)
	}

	count, _ := store.Review().CountByApp(440)
	if count != 0 {
		t.Errorf("Expected 0 reviews for app 440, got %d", count)
	}
	count, _ = store.Review().CountByApp(570)
	if count != 1 {
		t.Errorf("Expected 1 review for app 570, got %d", count)
	}
}
