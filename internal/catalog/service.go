// Package catalog maintains the local title catalog: a full applist backfill
// into SQLite plus the FTS index, refreshed on demand or on a schedule.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/internal/database"
	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/steam"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/errors"
	"github.com/gamelens/gamelens/pkg/logger"
)

// BackfillState is the lifecycle of the most recent backfill run.
type BackfillState string

const (
	StateIdle    BackfillState = "idle"
	StateRunning BackfillState = "running"
	StateDone    BackfillState = "done"
	StateFailed  BackfillState = "failed"
)

// Status is a snapshot of the backfill lifecycle for the API surface.
type Status struct {
	State      BackfillState `json:"state"`
	AppCount   int64         `json:"app_count"`
	Fetched    int           `json:"fetched"`
	Error      string        `json:"error,omitempty"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// appListClient is the slice of the upstream client the service needs.
type appListClient interface {
	FetchAppList(ctx context.Context) ([]steam.AppListEntry, error)
}

// Service downloads the public applist into the catalog table and keeps the
// FTS index in sync. One backfill runs at a time.
type Service struct {
	store  store.Store
	client appListClient
	cfg    *config.CatalogConfig
	cron   *cron.Cron

	mu         sync.Mutex
	state      BackfillState
	fetched    int
	lastError  string
	startedAt  *time.Time
	finishedAt *time.Time
}

// NewService creates a catalog service.
func NewService(s store.Store, client appListClient, cfg *config.CatalogConfig) *Service {
	return &Service{
		store:  s,
		client: client,
		cfg:    cfg,
		state:  StateIdle,
	}
}

// StartScheduler schedules the periodic refresh when enabled. No-op otherwise.
func (s *Service) StartScheduler() error {
	if !s.cfg.RefreshEnabled {
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.RefreshCron, func() {
		if err := s.Backfill(context.Background()); err != nil {
			logger.Error("Scheduled catalog refresh failed", zap.Error(err))
		}
	}); err != nil {
		logger.Error("Failed to schedule catalog refresh", zap.Error(err))
		return errors.Wrap(errors.ErrCodeConfigInvalid, "invalid catalog refresh schedule", err)
	}
	s.cron.Start()

	logger.Info("Catalog refresh scheduled", zap.String("schedule", s.cfg.RefreshCron))
	return nil
}

// StopScheduler stops the refresh schedule gracefully.
func (s *Service) StopScheduler() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// Status reports the current backfill state plus the stored row count.
func (s *Service) Status() Status {
	s.mu.Lock()
	status := Status{
		State:      s.state,
		Fetched:    s.fetched,
		Error:      s.lastError,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
	}
	s.mu.Unlock()

	count, err := s.store.Catalog().Count()
	if err != nil {
		logger.Warn("Failed to count catalog rows", zap.Error(err))
	}
	status.AppCount = count
	return status
}

// Trigger starts a backfill in the background. Returns ErrCodeConflict when
// one is already running.
func (s *Service) Trigger() error {
	if err := s.begin(); err != nil {
		return err
	}
	go func() {
		s.finish(s.run(context.Background()))
	}()
	return nil
}

// Backfill runs a backfill synchronously.
func (s *Service) Backfill(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.run(ctx)
	s.finish(err)
	return err
}

func (s *Service) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return errors.New(errors.ErrCodeConflict, "a catalog backfill is already running")
	}
	now := time.Now().UTC()
	s.state = StateRunning
	s.fetched = 0
	s.lastError = ""
	s.startedAt = &now
	s.finishedAt = nil
	return nil
}

func (s *Service) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.finishedAt = &now
	if err != nil {
		s.state = StateFailed
		s.lastError = err.Error()
		return
	}
	s.state = StateDone
}

// run downloads the applist and replaces the catalog contents. A corrupted
// database file is moved aside and the persist step retried once.
func (s *Service) run(ctx context.Context) error {
	started := time.Now()
	logger.Info("Catalog backfill started")

	entries, err := s.client.FetchAppList(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.fetched = len(entries)
	s.mu.Unlock()

	apps := make([]model.SteamApp, len(entries))
	for i, entry := range entries {
		apps[i] = model.SteamApp{AppID: entry.AppID, Name: entry.Name}
	}

	if err := s.persist(apps); err != nil {
		if !database.IsCorruptionError(err) {
			return err
		}
		aside, recErr := database.RecoverCorrupt()
		if recErr != nil {
			return recErr
		}
		logger.Warn("Recovered corrupt database during catalog backfill",
			zap.String("moved_to", aside))
		if err := s.persist(apps); err != nil {
			return err
		}
	}

	logger.Info("Catalog backfill completed",
		zap.Int("apps", len(apps)),
		zap.Duration("duration", time.Since(started)),
	)
	return nil
}

func (s *Service) persist(apps []model.SteamApp) error {
	if err := s.store.Catalog().BulkUpsertApps(apps); err != nil {
		return err
	}
	return s.store.Catalog().RebuildIndex()
}
