package scraper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gamelens/gamelens/consts"
	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/steam"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/errors"
	"github.com/gamelens/gamelens/pkg/logger"
	"github.com/gamelens/gamelens/pkg/telemetry"
)

// reviewsClient is the slice of the store API the engine needs.
type reviewsClient interface {
	FetchReviews(ctx context.Context, query steam.ReviewsQuery) (*steam.ReviewsPage, error)
}

// Engine drives review ingestion. At most one run is active per engine;
// titles within a run are harvested sequentially to honor rate limits
// and cursor ordering.
type Engine struct {
	store    store.Store
	client   reviewsClient
	progress *Progress

	mu      sync.Mutex
	running bool
}

// NewEngine creates an ingestion engine.
func NewEngine(s store.Store, client reviewsClient) *Engine {
	return &Engine{
		store:    s,
		client:   client,
		progress: NewProgress(),
	}
}

// Progress exposes the live progress tracker (also the scrape log sink).
func (e *Engine) Progress() *Progress {
	return e.progress
}

// Status returns a point-in-time progress snapshot.
func (e *Engine) Status() Snapshot {
	return e.progress.Snapshot()
}

// Stop requests a cooperative stop. The run exits after the current
// batch is saved; no in-flight page is abandoned.
func (e *Engine) Stop() {
	e.progress.RequestStop()
	logger.Info("Ingestion stop requested")
}

// Start validates the request and launches a run in the background.
// Fails with a conflict while another run is active.
func (e *Engine) Start(req Request) *errors.AppError {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := e.acquire(); err != nil {
		return err
	}
	go func() {
		defer e.release()
		e.run(context.Background(), req)
	}()
	return nil
}

// Run executes a run synchronously. Same guard as Start.
func (e *Engine) Run(ctx context.Context, req Request) *errors.AppError {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()
	e.run(ctx, req)
	return nil
}

func (e *Engine) acquire() *errors.AppError {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.New(errors.ErrCodeScrapeRunning, "an ingestion run is already active")
	}
	e.running = true
	return nil
}

func (e *Engine) release() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// run harvests every targeted title. A failing title does not abort the
// run; remaining titles still get their turn.
func (e *Engine) run(ctx context.Context, req Request) {
	log := logger.WithScrapeRun()

	games, err := e.resolveGames(req)
	if err != nil {
		logger.Error("Failed to resolve ingestion targets", zap.Error(err))
		return
	}

	// Existing filtered counts per title; their sum seeds the global counter.
	existing := make(map[uint]int64, len(games))
	var globalScraped int64
	for _, game := range games {
		settings := req.SettingsFor(game.AppID)
		count, err := e.store.Review().Count(settings.storeFilter(game.AppID))
		if err != nil {
			logger.Error("Failed to count stored reviews", zap.Uint("app_id", game.AppID), zap.Error(err))
			return
		}
		existing[game.AppID] = count
		globalScraped += count
	}

	e.progress.BeginRun(req.Defaults.RateLimitRPM, globalScraped)
	metrics := telemetry.GetMetrics()
	metrics.RecordScrapeStarted(ctx)
	log.Info("Ingestion run started", zap.Int("games", len(games)))

	for _, game := range games {
		if e.progress.StopRequested() || ctx.Err() != nil {
			log.Info("Ingestion run stopped")
			break
		}
		if err := e.scrapeTitle(ctx, log, game, req.SettingsFor(game.AppID), existing[game.AppID]); err != nil {
			log.Error("Title harvest failed",
				zap.Uint("app_id", game.AppID),
				zap.String("name", game.Name),
				zap.Error(err),
			)
		}
	}

	e.progress.EndRun()
	metrics.RecordScrapeCompleted(ctx)
	snap := e.progress.Snapshot()
	log.Info("Ingestion run finished",
		zap.Int64("scraped", snap.GlobalScraped-snap.StartGlobalScraped),
		zap.Int64("requests", snap.RequestsMade),
	)
}

// resolveGames returns the run's targets: the requested app ids, or every
// tracked game when none were named.
func (e *Engine) resolveGames(req Request) ([]model.Game, error) {
	if len(req.AppIDs) > 0 {
		games := make([]model.Game, 0, len(req.AppIDs))
		for _, appID := range req.AppIDs {
			game, err := e.store.Game().GetByID(appID)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeNotFound, "unknown game", err)
			}
			games = append(games, *game)
		}
		return games, nil
	}

	withCounts, _, err := e.store.Game().List(-1, 0)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to list games", err)
	}
	games := make([]model.Game, 0, len(withCounts))
	for _, g := range withCounts {
		games = append(games, g.Game)
	}
	return games, nil
}

// scrapeTitle walks one title's review pages until the review cap is reached, the
// pages are exhausted, nothing newer than the resume floor remains, or a
// stop is requested.
func (e *Engine) scrapeTitle(ctx context.Context, log *zap.Logger, game model.Game, settings Settings, existingCount int64) error {
	log = log.With(zap.Uint("app_id", game.AppID), zap.String("name", game.Name))

	paramsHash, err := settings.ParamsHash()
	if err != nil {
		return err
	}

	// reviewCap < 0 means unbounded (complete_scraping)
	reviewCap := int64(settings.MaxReviews)
	if settings.CompleteScraping {
		reviewCap = -1
	}
	if reviewCap >= 0 && existingCount >= reviewCap {
		log.Info("Skipping title, stored reviews already meet the cap",
			zap.Int64("stored", existingCount))
		return nil
	}

	e.progress.SetCurrentGame(game.AppID, game.Name, existingCount)

	threshold, err := e.resumeFloor(game.AppID, settings, existingCount, reviewCap)
	if err != nil {
		return err
	}

	cursor := consts.InitialCursor
	if stored, err := e.store.Cursor().Get(game.AppID, paramsHash); err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to load cursor", err)
	} else if stored != nil {
		cursor = stored.Cursor
		log.Info("Resuming from stored cursor")
	}

	language := settings.storeLanguage()
	interval := time.Duration(float64(time.Minute) / float64(settings.RateLimitRPM))

	var scraped int64
	firstPage := true

	for {
		if ctx.Err() != nil {
			return nil
		}

		start := time.Now()
		page, err := e.client.FetchReviews(ctx, steam.ReviewsQuery{
			AppID:      game.AppID,
			Cursor:     cursor,
			Language:   language,
			NumPerPage: consts.ReviewsPerPage,
		})
		e.progress.RecordRequest(time.Since(start))
		telemetry.GetMetrics().RecordScrapePage(ctx, time.Since(start).Seconds(), err == nil)
		if err != nil {
			return err
		}

		if firstPage {
			firstPage = false
			target := page.QuerySummary.TotalReviews
			if reviewCap >= 0 && reviewCap < target {
				target = reviewCap
			}
			e.progress.SetCurrentGameTotal(target)
		}

		if len(page.Reviews) == 0 {
			log.Info("Title harvest complete, pages exhausted", zap.Int64("scraped", scraped))
			break
		}

		if threshold != nil && !newestTimestamp(page.Reviews).After(*threshold) {
			log.Info("No new reviews available", zap.Int64("scraped", scraped))
			break
		}

		now := time.Now().UTC()
		batch := make([]model.Review, 0, len(page.Reviews))
		for i := range page.Reviews {
			if settings.matches(&page.Reviews[i]) {
				batch = append(batch, toReview(game.AppID, &page.Reviews[i], now))
			}
		}

		var saved int64
		if len(batch) > 0 {
			saved, err = e.store.Review().InsertBatch(batch)
			if err != nil {
				// Partial batch rolled back; the run moves on to the next title.
				return errors.Wrap(errors.ErrCodeDBQuery, "failed to save review batch", err)
			}
		}
		scraped += saved
		e.progress.AddScraped(saved)
		telemetry.GetMetrics().RecordReviewsScraped(ctx, game.AppID, saved)
		if saved > 0 {
			log.Info("Saved review batch", zap.Int64("saved", saved), zap.Int("page_size", len(page.Reviews)))
			if err := e.store.Cursor().Save(&model.ScrapeCursor{
				AppID:      game.AppID,
				ParamsHash: paramsHash,
				Cursor:     page.Cursor,
			}); err != nil {
				return errors.Wrap(errors.ErrCodeDBQuery, "failed to save cursor", err)
			}
		}

		// Stop checkpoint: after the batch save, never mid-page.
		if e.progress.StopRequested() {
			log.Info("Title harvest stopped", zap.Int64("scraped", scraped))
			break
		}

		if page.Cursor == "" || page.Cursor == cursor {
			break
		}
		cursor = page.Cursor

		if reviewCap >= 0 && existingCount+scraped >= reviewCap {
			log.Info("Title harvest reached the review cap", zap.Int64("scraped", scraped))
			break
		}

		if !sleepInterruptible(ctx, interval, e.progress) {
			break
		}
	}

	if err := e.store.Game().UpdateLastScraped(game.AppID, time.Now().UTC()); err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to update last_scraped_at", err)
	}
	return nil
}

// resumeFloor computes the timestamp below which pages are assumed already
// stored. Cleared when the user gave no start date and the title is still
// short of its cap, so older pages can be filled in.
func (e *Engine) resumeFloor(appID uint, settings Settings, existingCount, reviewCap int64) (*time.Time, error) {
	if settings.StartDate == nil && (reviewCap < 0 || existingCount < reviewCap) {
		return nil, nil
	}

	var threshold *time.Time
	if settings.StartDate != nil {
		t := settings.StartDate.UTC()
		threshold = &t
	}

	latest, _, err := e.store.Review().List(settings.storeFilter(appID), 1, 0)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to load newest stored review", err)
	}
	if len(latest) > 0 {
		t := latest[0].ReviewDate
		if threshold == nil || t.After(*threshold) {
			threshold = &t
		}
	}
	return threshold, nil
}

// newestTimestamp returns the newest creation time in a page.
func newestTimestamp(reviews []steam.ReviewEntry) time.Time {
	var max int64
	for i := range reviews {
		if reviews[i].TimestampCreated > max {
			max = reviews[i].TimestampCreated
		}
	}
	return time.Unix(max, 0).UTC()
}

// sleepInterruptible sleeps for the rate-limit interval, waking early on
// context cancellation or a stop request. Returns false when the harvest
// should end.
func sleepInterruptible(ctx context.Context, d time.Duration, p *Progress) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	// Poll the stop flag at a coarse granularity while waiting.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case <-ticker.C:
			if p.StopRequested() {
				return false
			}
		}
	}
}
