package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/prompt"
	"github.com/gamelens/gamelens/internal/provider"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/internal/vault"
	"github.com/gamelens/gamelens/pkg/errors"
	"github.com/gamelens/gamelens/pkg/logger"
	"github.com/gamelens/gamelens/pkg/telemetry"
)

// StartRequest describes one analysis job submission.
type StartRequest struct {
	Filters Filters `json:"filters"`

	Provider  string              `json:"provider"`
	Model     string              `json:"model"`
	Reasoning *provider.Reasoning `json:"reasoning,omitempty"`

	// ReviewsPerBatch is the number of reviews per provider dispatch
	ReviewsPerBatch int `json:"reviews_per_batch"`

	// BatchesPerRequest is the batch worker pool size within the job
	BatchesPerRequest int `json:"batches_per_request"`
}

// Orchestrator owns analysis job lifecycles. Multiple jobs may run
// concurrently up to the configured limit; within a job, batches run on a
// bounded worker pool.
type Orchestrator struct {
	store   store.Store
	prompts *prompt.Store
	creds   *vault.Credentials
	cfg     *config.AnalysisConfig

	// jobSlots bounds concurrently running jobs
	jobSlots chan struct{}
}

// NewOrchestrator creates an analysis orchestrator.
func NewOrchestrator(s store.Store, prompts *prompt.Store, creds *vault.Credentials, cfg *config.AnalysisConfig) *Orchestrator {
	maxJobs := cfg.MaxConcurrentJobs
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Orchestrator{
		store:    s,
		prompts:  prompts,
		creds:    creds,
		cfg:      cfg,
		jobSlots: make(chan struct{}, maxJobs),
	}
}

// validate normalizes and checks a start request.
func (o *Orchestrator) validate(req *StartRequest) *errors.AppError {
	if err := req.Filters.Validate(); err != nil {
		return err
	}
	if req.Provider == "" {
		return errors.New(errors.ErrCodeValidation, "provider is required")
	}
	if !provider.IsRegistered(req.Provider) {
		return errors.New(errors.ErrCodeProviderNotFound,
			fmt.Sprintf("provider '%s' not registered", req.Provider))
	}
	if req.Model == "" {
		return errors.New(errors.ErrCodeValidation, "model is required")
	}
	if req.Reasoning != nil {
		switch req.Reasoning.Effort {
		case "", "low", "medium", "high":
		default:
			return errors.New(errors.ErrCodeValidation, "reasoning effort must be low, medium, or high")
		}
	}
	if req.ReviewsPerBatch <= 0 {
		req.ReviewsPerBatch = o.cfg.ReviewsPerBatch
	}
	if req.ReviewsPerBatch <= 0 {
		req.ReviewsPerBatch = 1
	}
	if req.BatchesPerRequest <= 0 {
		req.BatchesPerRequest = 1
	}
	return nil
}

// Start validates the request, creates the job row in pending state, and
// schedules the background worker. Returns the job id.
func (o *Orchestrator) Start(req StartRequest) (uint, *errors.AppError) {
	if err := o.validate(&req); err != nil {
		return 0, err
	}

	settings, err := settingsSnapshot(req)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, "failed to snapshot job settings", err)
	}

	job := &model.AnalysisJob{
		Status:   model.JobStatusPending,
		Settings: settings,
	}
	if err := o.store.Job().Create(job); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to create analysis job", err)
	}

	go func() {
		o.jobSlots <- struct{}{}
		defer func() { <-o.jobSlots }()
		o.runJob(context.Background(), job.ID, req)
	}()

	return job.ID, nil
}

// RunJob executes a job synchronously. Used by tests and by Start's worker.
func (o *Orchestrator) RunJob(ctx context.Context, jobID uint, req StartRequest) *errors.AppError {
	if err := o.validate(&req); err != nil {
		return err
	}
	o.runJob(ctx, jobID, req)
	return nil
}

// settingsSnapshot records the submitted settings on the job row.
func settingsSnapshot(req StartRequest) (model.JSONMap, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var snapshot model.JSONMap
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// runJob drives one job to a terminal state. Unexpected failures flip the
// job to error with a message; mapping failures never do.
func (o *Orchestrator) runJob(ctx context.Context, jobID uint, req StartRequest) {
	log := logger.Get().With(zap.Uint("job_id", jobID))

	picked, err := o.store.Job().MarkRunningIfPending(jobID, time.Now().UTC())
	if err != nil {
		log.Error("Failed to mark job running", zap.Error(err))
		return
	}
	if !picked {
		log.Warn("Job was not pending, skipping")
		return
	}

	metrics := telemetry.GetMetrics()
	metrics.RecordJobStarted(ctx, req.Provider, req.Model)
	startTime := time.Now()

	if err := o.processJob(ctx, log, jobID, req); err != nil {
		log.Error("Analysis job failed", zap.Error(err))
		metrics.RecordJobCompleted(ctx, req.Provider, string(model.JobStatusError), time.Since(startTime).Seconds())
		if dbErr := o.store.Job().UpdateStatusWithError(jobID, model.JobStatusError, err.Error()); dbErr != nil {
			log.Error("Failed to record job error", zap.Error(dbErr))
		}
		return
	}

	metrics.RecordJobCompleted(ctx, req.Provider, string(model.JobStatusCompleted), time.Since(startTime).Seconds())
	if err := o.store.Job().MarkCompleted(jobID, time.Now().UTC()); err != nil {
		log.Error("Failed to mark job completed", zap.Error(err))
	}
}

func (o *Orchestrator) processJob(ctx context.Context, log *zap.Logger, jobID uint, req StartRequest) error {
	promptName, promptText, err := o.prompts.LoadActive()
	if err != nil {
		return err
	}
	if o.cfg.OutputLanguage != "" {
		if langCfg, langErr := o.cfg.GetOutputLanguage(); langErr == nil {
			promptText += "\n\nAll output must be in " + langCfg.PromptInstruction() + "."
		}
	}

	reviews, err := o.store.Review().ListAll(req.Filters.ToReviewFilter())
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to select reviews", err)
	}

	effort := ""
	if req.Reasoning != nil {
		effort = req.Reasoning.Effort
	}

	// One result row per review, snapshotting everything the dispatch needs.
	results := make([]model.AnalysisResult, len(reviews))
	for i, review := range reviews {
		reviewID := review.ReviewID
		results[i] = model.AnalysisResult{
			JobID:           jobID,
			ReviewID:        &reviewID,
			ReviewText:      review.ReviewText,
			Prompt:          promptText,
			Model:           req.Model,
			Provider:        req.Provider,
			ReasoningEffort: effort,
			Status:          model.ResultStatusPending,
		}
	}
	if err := o.store.Job().CreateResults(results); err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to create result rows", err)
	}
	if err := o.store.Job().SetTotalReviews(jobID, len(reviews)); err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to set total reviews", err)
	}

	log.Info("Analysis job started",
		zap.String("prompt", promptName),
		zap.String("provider", req.Provider),
		zap.String("model", req.Model),
		zap.Int("reviews", len(reviews)),
	)

	if len(reviews) == 0 {
		return nil
	}

	prov, err := o.buildProvider(req.Provider)
	if err != nil {
		return err
	}

	// Reload the created rows so ids are populated for updates.
	pending, err := o.store.Job().ListPendingResultsByJob(jobID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to load pending results", err)
	}

	batches := partition(pending, req.ReviewsPerBatch)

	var wg sync.WaitGroup
	slots := make(chan struct{}, req.BatchesPerRequest)
	errOnce := sync.Once{}
	var firstErr error

	for _, batch := range batches {
		wg.Add(1)
		slots <- struct{}{}
		go func(batch []model.AnalysisResult) {
			defer wg.Done()
			defer func() { <-slots }()
			if err := o.processBatch(ctx, log, jobID, prov, req, batch); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(batch)
	}
	wg.Wait()

	return firstErr
}

// buildProvider resolves the credential and instantiates the adapter.
// Providers that need no credential still work when none is stored.
func (o *Orchestrator) buildProvider(name string) (provider.Provider, error) {
	apiKey, err := o.creds.Resolve(name)
	if err != nil {
		appErr, ok := errors.AsAppError(err)
		if !ok || appErr.Code != errors.ErrCodeCredentialAbsent {
			return nil, err
		}
	}
	return provider.Create(name, &provider.Config{Name: name, APIKey: apiKey})
}

// partition splits results into batches of at most size.
func partition(results []model.AnalysisResult, size int) [][]model.AnalysisResult {
	var batches [][]model.AnalysisResult
	for start := 0; start < len(results); start += size {
		end := start + size
		if end > len(results) {
			end = len(results)
		}
		batches = append(batches, results[start:end])
	}
	return batches
}

// processBatch dispatches one batch and persists its outcomes. A dispatch
// failure marks every result in the batch as error; progress still advances
// so the counter reflects attempted work.
func (o *Orchestrator) processBatch(ctx context.Context, log *zap.Logger, jobID uint, prov provider.Provider, req StartRequest, batch []model.AnalysisResult) error {
	inputs := make([]string, len(batch))
	for i, result := range batch {
		inputs[i] = result.ReviewText
	}

	promptText := batch[0].Prompt

	// Provider progress callbacks advance the counter during long batch
	// polls; only the unreported remainder is added after persistence, so
	// processed_count still sums exactly to total_reviews.
	var progressMu sync.Mutex
	reported := 0
	onProgress := func(completed, total int) {
		progressMu.Lock()
		defer progressMu.Unlock()
		if completed > len(batch) {
			completed = len(batch)
		}
		if completed <= reported {
			return
		}
		delta := completed - reported
		reported = completed
		if dbErr := o.store.Job().IncrementProcessed(jobID, delta); dbErr != nil {
			log.Warn("Failed to advance progress", zap.Error(dbErr))
		}
	}
	advanceRemainder := func() error {
		progressMu.Lock()
		remainder := len(batch) - reported
		reported = len(batch)
		progressMu.Unlock()
		if remainder <= 0 {
			return nil
		}
		return o.store.Job().IncrementProcessed(jobID, remainder)
	}

	raws, err := prov.AnalyzeBatch(ctx, provider.BatchRequest{
		Inputs:           inputs,
		Prompt:           promptText,
		Model:            req.Model,
		Reasoning:        req.Reasoning,
		CompletionWindow: o.cfg.CompletionWindow,
	}, onProgress)

	now := time.Now().UTC()
	if err != nil {
		log.Warn("Batch dispatch failed", zap.Error(err))
		for i := range batch {
			batch[i].Status = model.ResultStatusError
			batch[i].Error = err.Error()
			batch[i].CompletedAt = &now
			if dbErr := o.store.Job().UpdateResult(&batch[i]); dbErr != nil {
				return errors.Wrap(errors.ErrCodeDBQuery, "failed to record result error", dbErr)
			}
		}
		if dbErr := advanceRemainder(); dbErr != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to advance progress", dbErr)
		}
		return nil
	}

	if len(raws) != len(batch) {
		return errors.New(errors.ErrCodeProviderBatch,
			fmt.Sprintf("provider returned %d responses for %d inputs", len(raws), len(batch)))
	}

	for i := range batch {
		mapped := MapResponse(req.Provider, raws[i])
		batch[i].AnalysisOutput = mapped.AnalysisOutput
		batch[i].AnalysedReview = mapped.AnalysedReview
		batch[i].InputTokens = mapped.InputTokens
		batch[i].OutputTokens = mapped.OutputTokens
		batch[i].TotalTokens = mapped.TotalTokens
		// Mapping shortfalls keep the raw output; the result still completes.
		batch[i].Status = model.ResultStatusComplete
		batch[i].CompletedAt = &now
		if dbErr := o.store.Job().UpdateResult(&batch[i]); dbErr != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to save result", dbErr)
		}
		if mapped.TotalTokens != nil {
			telemetry.GetMetrics().RecordTokensConsumed(ctx, req.Provider, req.Model, *mapped.TotalTokens)
		}
	}

	if dbErr := advanceRemainder(); dbErr != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to advance progress", dbErr)
	}
	return nil
}

// Backfill re-runs the mapper over results whose raw output was stored but
// whose canonical fields are empty. Bounded by limit; returns the number of
// results updated.
func (o *Orchestrator) Backfill(limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	results, err := o.store.Job().ListUnmappedResults(limit)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to list unmapped results", err)
	}

	updated := 0
	for i := range results {
		mapped := MapResponse(results[i].Provider, results[i].AnalysisOutput)
		if mapped.AnalysedReview == "" {
			continue
		}
		results[i].AnalysedReview = mapped.AnalysedReview
		results[i].AnalysisOutput = mapped.AnalysisOutput
		if results[i].InputTokens == nil {
			results[i].InputTokens = mapped.InputTokens
		}
		if results[i].OutputTokens == nil {
			results[i].OutputTokens = mapped.OutputTokens
		}
		if results[i].TotalTokens == nil {
			results[i].TotalTokens = mapped.TotalTokens
		}
		if err := o.store.Job().UpdateResult(&results[i]); err != nil {
			return updated, errors.Wrap(errors.ErrCodeDBQuery, "failed to save backfilled result", err)
		}
		updated++
	}
	return updated, nil
}

// Preview returns the reviews a filter payload would select, without calling
// any provider. Defaults to a 50-row sample.
func (o *Orchestrator) Preview(filters Filters, limit, offset int) ([]model.Review, int64, *errors.AppError) {
	if err := filters.Validate(); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	reviews, total, err := o.store.Review().List(filters.ToReviewFilter(), limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to preview reviews", err)
	}
	return reviews, total, nil
}
