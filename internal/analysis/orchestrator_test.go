package analysis

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/prompt"
	"github.com/gamelens/gamelens/internal/provider"
	_ "github.com/gamelens/gamelens/internal/provider/mock"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/internal/vault"
	"github.com/gamelens/gamelens/pkg/errors"
)

func setupOrchestrator(t *testing.T) (*Orchestrator, store.Store, func()) {
	t.Helper()
	s, cleanup := store.SetupTestDB(t)

	prompts := prompt.NewStore(t.TempDir(), s.Settings())
	if err := prompts.Save("prompt.txt", "Summarize the sentiment."); err != nil {
		cleanup()
		t.Fatalf("Failed to save prompt: %v", err)
	}

	v, err := vault.New(filepath.Join(t.TempDir(), "vault.key"))
	if err != nil {
		cleanup()
		t.Fatalf("Failed to create vault: %v", err)
	}
	creds := vault.NewCredentials(v, s)

	cfg := &config.AnalysisConfig{
		MaxConcurrentJobs: 2,
		ReviewsPerBatch:   2,
		CompletionWindow:  "24h",
	}
	return NewOrchestrator(s, prompts, creds, cfg), s, cleanup
}

func seedReviews(t *testing.T, s store.Store, appID uint, n int) {
	t.Helper()
	store.CreateTestGame(t, s, func(g *model.Game) { g.AppID = appID })
	for i := 0; i < n; i++ {
		idx := i
		store.CreateTestReview(t, s, appID, func(r *model.Review) {
			r.ReviewID = r.ReviewID[:len(r.ReviewID)-1] + string(rune('a'+idx))
			r.ReviewText = "review body " + string(rune('a'+idx))
		})
	}
}

// TestRunJob_MockProvider drives a job through the mock provider end to end
func TestRunJob_MockProvider(t *testing.T) {
	o, s, cleanup := setupOrchestrator(t)
	defer cleanup()
	seedReviews(t, s, 440, 5)

	job := store.CreateTestJob(t, s)
	req := StartRequest{
		Filters:           Filters{AppID: 440},
		Provider:          "mock",
		Model:             "mock-model",
		ReviewsPerBatch:   2,
		BatchesPerRequest: 2,
	}
	if err := o.RunJob(context.Background(), job.ID, req); err != nil {
		t.Fatalf("RunJob() failed: %v", err)
	}

	got, err := s.Job().GetByID(job.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Status != model.JobStatusCompleted {
		t.Errorf("Job status = %s, want completed (error: %s)", got.Status, got.Error)
	}
	if got.TotalReviews != 5 {
		t.Errorf("TotalReviews = %d, want 5", got.TotalReviews)
	}
	if got.ProcessedCount != 5 {
		t.Errorf("ProcessedCount = %d, want 5", got.ProcessedCount)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("Started/completed timestamps should be set")
	}

	results, total, err := s.Job().ListResultsByJob(job.ID, "", 100, 0)
	if err != nil {
		t.Fatalf("ListResultsByJob() failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("Expected 5 results, got %d", total)
	}
	for _, r := range results {
		if r.Status != model.ResultStatusComplete {
			t.Errorf("Result %d status = %s, want complete", r.ID, r.Status)
		}
		if r.AnalysedReview == "" {
			t.Errorf("Result %d should have mapped content", r.ID)
		}
		if r.TotalTokens == nil {
			t.Errorf("Result %d should have token accounting", r.ID)
		}
		if r.Provider != "mock" || r.Model != "mock-model" {
			t.Errorf("Result %d snapshot wrong: %s/%s", r.ID, r.Provider, r.Model)
		}
		if r.Prompt == "" || r.ReviewText == "" {
			t.Errorf("Result %d should snapshot prompt and review text", r.ID)
		}
		if r.CompletedAt == nil {
			t.Errorf("Result %d should have a completion timestamp", r.ID)
		}
	}
}

// TestRunJob_ZeroReviews completes immediately when the filter matches nothing
func TestRunJob_ZeroReviews(t *testing.T) {
	o, s, cleanup := setupOrchestrator(t)
	defer cleanup()

	job := store.CreateTestJob(t, s)
	req := StartRequest{
		Filters:  Filters{AppID: 99999},
		Provider: "mock",
		Model:    "mock-model",
	}
	if err := o.RunJob(context.Background(), job.ID, req); err != nil {
		t.Fatalf("RunJob() failed: %v", err)
	}

	got, _ := s.Job().GetByID(job.ID)
	if got.Status != model.JobStatusCompleted {
		t.Errorf("Empty job should complete, got %s", got.Status)
	}
	if got.TotalReviews != 0 || got.ProcessedCount != 0 {
		t.Errorf("Counts should stay zero, got %d/%d", got.ProcessedCount, got.TotalReviews)
	}
}

// TestRunJob_NotPending refuses to re-run a finished job
func TestRunJob_NotPending(t *testing.T) {
	o, s, cleanup := setupOrchestrator(t)
	defer cleanup()
	seedReviews(t, s, 440, 1)

	job := store.CreateTestJob(t, s, func(j *model.AnalysisJob) {
		j.Status = model.JobStatusCompleted
	})
	req := StartRequest{Filters: Filters{AppID: 440}, Provider: "mock", Model: "m"}
	if err := o.RunJob(context.Background(), job.ID, req); err != nil {
		t.Fatalf("RunJob() failed: %v", err)
	}

	results, total, _ := s.Job().ListResultsByJob(job.ID, "", 10, 0)
	if total != 0 || len(results) != 0 {
		t.Error("A non-pending job must not produce results")
	}
}

// TestStart_Validation rejects bad requests before creating a job row
func TestStart_Validation(t *testing.T) {
	o, s, cleanup := setupOrchestrator(t)
	defer cleanup()

	tests := []struct {
		name string
		req  StartRequest
		code errors.ErrorCode
	}{
		{"missing provider", StartRequest{Model: "m"}, errors.ErrCodeValidation},
		{"unknown provider", StartRequest{Provider: "nope", Model: "m"}, errors.ErrCodeProviderNotFound},
		{"missing model", StartRequest{Provider: "mock"}, errors.ErrCodeValidation},
		{"bad reasoning", StartRequest{Provider: "mock", Model: "m", Reasoning: &provider.Reasoning{Effort: "max"}}, errors.ErrCodeValidation},
		{"bad filter", StartRequest{Provider: "mock", Model: "m", Filters: Filters{ReviewType: "weird"}}, errors.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Start(tt.req)
			if err == nil {
				t.Fatal("Start() should fail")
			}
			if err.Code != tt.code {
				t.Errorf("Error code = %s, want %s", err.Code, tt.code)
			}
		})
	}

	count, _ := s.Job().CountByStatus(model.JobStatusPending)
	if count != 0 {
		t.Errorf("Rejected requests must not create jobs, found %d", count)
	}
}

// TestStart_RunsToCompletion exercises the async path
func TestStart_RunsToCompletion(t *testing.T) {
	o, s, cleanup := setupOrchestrator(t)
	defer cleanup()
	seedReviews(t, s, 570, 3)

	jobID, appErr := o.Start(StartRequest{
		Filters:  Filters{AppID: 570},
		Provider: "mock",
		Model:    "mock-model",
	})
	if appErr != nil {
		t.Fatalf("Start() failed: %v", appErr)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := s.Job().GetByID(jobID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if got.Status == model.JobStatusCompleted {
			if got.ProcessedCount != 3 {
				t.Errorf("ProcessedCount = %d, want 3", got.ProcessedCount)
			}
			return
		}
		if got.Status == model.JobStatusError {
			t.Fatalf("Job failed: %s", got.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("Job did not finish, status %s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// reportingProvider invokes the progress callback for the first item, then
// holds the batch open until released, so mid-batch progress is observable.
type reportingProvider struct {
	reported chan struct{}
	release  chan struct{}
}

func (p *reportingProvider) Name() string { return "reporting" }

func (p *reportingProvider) AnalyzeSingle(ctx context.Context, fullPrompt, model string, reasoning *provider.Reasoning) (string, error) {
	return `{"choices":[{"message":{"content":"ok"}}],"usage":{"total_tokens":1}}`, nil
}

func (p *reportingProvider) AnalyzeBatch(ctx context.Context, req provider.BatchRequest, progress provider.ProgressFunc) ([]string, error) {
	if progress != nil {
		progress(1, len(req.Inputs))
	}
	close(p.reported)
	<-p.release

	out := make([]string, len(req.Inputs))
	for i := range out {
		out[i] = `{"choices":[{"message":{"content":"ok"}}],"usage":{"total_tokens":1}}`
	}
	return out, nil
}

// TestRunJob_ProviderProgress advances processed_count from provider progress
// callbacks during a long batch, without double counting after persistence
func TestRunJob_ProviderProgress(t *testing.T) {
	o, s, cleanup := setupOrchestrator(t)
	defer cleanup()
	seedReviews(t, s, 440, 3)

	p := &reportingProvider{reported: make(chan struct{}), release: make(chan struct{})}
	provider.Register("reporting", func(cfg *provider.Config) (provider.Provider, error) { return p, nil })
	defer provider.Unregister("reporting")

	job := store.CreateTestJob(t, s)
	req := StartRequest{
		Filters:         Filters{AppID: 440},
		Provider:        "reporting",
		Model:           "m",
		ReviewsPerBatch: 3,
	}

	done := make(chan *errors.AppError, 1)
	go func() { done <- o.RunJob(context.Background(), job.ID, req) }()

	// The provider reported one completed item and is still mid-batch; the
	// counter must reflect that before any result is persisted.
	<-p.reported
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := s.Job().GetByID(job.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if got.ProcessedCount == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ProcessedCount = %d mid-batch, want 1", got.ProcessedCount)
		}
		time.Sleep(10 * time.Millisecond)
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("RunJob() failed: %v", err)
	}

	got, err := s.Job().GetByID(job.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.ProcessedCount != 3 {
		t.Errorf("ProcessedCount = %d, want 3 (callback progress must not double count)", got.ProcessedCount)
	}
	if got.Status != model.JobStatusCompleted {
		t.Errorf("Job status = %s, want completed", got.Status)
	}
}

// TestBackfill re-maps stored raw output into the canonical fields
func TestBackfill(t *testing.T) {
	o, s, cleanup := setupOrchestrator(t)
	defer cleanup()

	job := store.CreateTestJob(t, s)
	raw := `{"choices":[{"message":{"content":"late mapped"}}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`
	results := []model.AnalysisResult{
		{JobID: job.ID, Provider: "mock", AnalysisOutput: raw, Status: model.ResultStatusComplete},
		{JobID: job.ID, Provider: "mock", AnalysisOutput: "not parseable", Status: model.ResultStatusComplete},
	}
	if err := s.Job().CreateResults(results); err != nil {
		t.Fatalf("CreateResults() failed: %v", err)
	}

	updated, err := o.Backfill(10)
	if err != nil {
		t.Fatalf("Backfill() failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("Backfill() updated = %d, want 1", updated)
	}

	rows, _, err := s.Job().ListResultsByJob(job.ID, "", 10, 0)
	if err != nil {
		t.Fatalf("ListResultsByJob() failed: %v", err)
	}
	for _, r := range rows {
		if r.AnalysisOutput == "not parseable" && r.AnalysedReview != "" {
			t.Error("Unparseable output must stay unmapped")
		}
		if r.AnalysisOutput != "not parseable" {
			if r.AnalysedReview != "late mapped" {
				t.Errorf("Backfilled content = %q", r.AnalysedReview)
			}
			if r.TotalTokens == nil || *r.TotalTokens != 3 {
				t.Errorf("Backfilled tokens = %v", r.TotalTokens)
			}
		}
	}
}

// TestPreview returns the filtered sample without touching providers
func TestPreview(t *testing.T) {
	o, s, cleanup := setupOrchestrator(t)
	defer cleanup()
	seedReviews(t, s, 440, 4)

	reviews, total, appErr := o.Preview(Filters{AppID: 440}, 2, 0)
	if appErr != nil {
		t.Fatalf("Preview() failed: %v", appErr)
	}
	if total != 4 {
		t.Errorf("Preview total = %d, want 4", total)
	}
	if len(reviews) != 2 {
		t.Errorf("Preview page size = %d, want 2", len(reviews))
	}

	if _, _, appErr := o.Preview(Filters{ReviewType: "weird"}, 0, 0); appErr == nil {
		t.Error("Preview should validate filters")
	}
}
