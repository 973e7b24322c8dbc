package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/internal/steam"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/errors"
)

// fakeAppListClient serves a scripted applist, optionally blocking until
// released so overlap can be tested.
type fakeAppListClient struct {
	entries []steam.AppListEntry
	err     error

	mu    sync.Mutex
	calls int
	block chan struct{}
}

func (f *fakeAppListClient) FetchAppList(ctx context.Context) ([]steam.AppListEntry, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func newTestService(t *testing.T, client *fakeAppListClient) (*Service, store.Store, func()) {
	t.Helper()
	s, cleanup := store.SetupTestDB(t)
	svc := NewService(s, client, &config.CatalogConfig{})
	return svc, s, cleanup
}

// TestBackfill populates the catalog and the search index
func TestBackfill(t *testing.T) {
	client := &fakeAppListClient{entries: []steam.AppListEntry{
		{AppID: 440, Name: "Team Fortress 2"},
		{AppID: 570, Name: "Dota 2"},
		{AppID: 730, Name: "Counter-Strike 2"},
	}}
	svc, s, cleanup := newTestService(t, client)
	defer cleanup()

	if err := svc.Backfill(context.Background()); err != nil {
		t.Fatalf("Backfill() failed: %v", err)
	}

	status := svc.Status()
	if status.State != StateDone {
		t.Errorf("State = %s, want done", status.State)
	}
	if status.AppCount != 3 || status.Fetched != 3 {
		t.Errorf("Counts = %d/%d, want 3/3", status.AppCount, status.Fetched)
	}
	if status.StartedAt == nil || status.FinishedAt == nil {
		t.Error("Timestamps should be set after a run")
	}

	// Backfilled rows must be searchable
	results, err := s.Catalog().Search("team fort", 10)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 1 || results[0].AppID != 440 {
		t.Errorf("Search results = %+v", results)
	}
}

// TestBackfill_RefreshUpdatesNames re-runs and picks up renamed titles
func TestBackfill_RefreshUpdatesNames(t *testing.T) {
	client := &fakeAppListClient{entries: []steam.AppListEntry{
		{AppID: 440, Name: "Team Fortress 2"},
	}}
	svc, s, cleanup := newTestService(t, client)
	defer cleanup()

	if err := svc.Backfill(context.Background()); err != nil {
		t.Fatalf("First Backfill() failed: %v", err)
	}

	client.entries = []steam.AppListEntry{{AppID: 440, Name: "Team Fortress 2 Classic"}}
	if err := svc.Backfill(context.Background()); err != nil {
		t.Fatalf("Second Backfill() failed: %v", err)
	}

	app, err := s.Catalog().GetByID(440)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if app.Name != "Team Fortress 2 Classic" {
		t.Errorf("Name = %s, refresh should update it", app.Name)
	}
	if count, _ := s.Catalog().Count(); count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

// TestBackfill_UpstreamFailure records the error and flips to failed
func TestBackfill_UpstreamFailure(t *testing.T) {
	client := &fakeAppListClient{err: fmt.Errorf("upstream unavailable")}
	svc, _, cleanup := newTestService(t, client)
	defer cleanup()

	if err := svc.Backfill(context.Background()); err == nil {
		t.Fatal("Backfill() should fail")
	}

	status := svc.Status()
	if status.State != StateFailed {
		t.Errorf("State = %s, want failed", status.State)
	}
	if status.Error == "" {
		t.Error("Status should carry the failure message")
	}
}

// TestTrigger_RejectsOverlap refuses a second run while one is active
func TestTrigger_RejectsOverlap(t *testing.T) {
	client := &fakeAppListClient{
		entries: []steam.AppListEntry{{AppID: 440, Name: "Team Fortress 2"}},
		block:   make(chan struct{}),
	}
	svc, _, cleanup := newTestService(t, client)
	defer cleanup()

	if err := svc.Trigger(); err != nil {
		t.Fatalf("Trigger() failed: %v", err)
	}

	err := svc.Trigger()
	if err == nil {
		t.Fatal("Overlapping Trigger() should fail")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeConflict {
		t.Errorf("Error = %v, want conflict", err)
	}

	close(client.block)
	deadline := time.Now().Add(2 * time.Second)
	for svc.Status().State == StateRunning {
		if time.Now().After(deadline) {
			t.Fatal("Backfill did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if svc.Status().State != StateDone {
		t.Errorf("State = %s, want done", svc.Status().State)
	}
}

// TestScheduler_DisabledIsNoop does not start cron when refresh is off
func TestScheduler_DisabledIsNoop(t *testing.T) {
	client := &fakeAppListClient{}
	svc, _, cleanup := newTestService(t, client)
	defer cleanup()

	if err := svc.StartScheduler(); err != nil {
		t.Fatalf("StartScheduler() failed: %v", err)
	}
	svc.StopScheduler()
	if client.calls != 0 {
		t.Errorf("Disabled scheduler made %d fetches", client.calls)
	}
}

// TestScheduler_BadSchedule rejects an invalid cron expression
func TestScheduler_BadSchedule(t *testing.T) {
	client := &fakeAppListClient{}
	s, cleanup := store.SetupTestDB(t)
	defer cleanup()

	svc := NewService(s, client, &config.CatalogConfig{
		RefreshEnabled: true,
		RefreshCron:    "not a schedule",
	})
	if err := svc.StartScheduler(); err == nil {
		t.Fatal("StartScheduler() should reject a bad schedule")
	}
}
