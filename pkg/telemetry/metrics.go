// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/gamelens/gamelens/pkg/logger"
)

const (
	// MeterName is the default meter name for the application
	MeterName = "github.com/gamelens/gamelens"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scrape metrics
	ReviewsScrapedTotal metric.Int64Counter
	ScrapePageDuration  metric.Float64Histogram
	ActiveScrapes       metric.Int64UpDownCounter

	// Analysis metrics
	AnalysisJobsTotal   metric.Int64Counter
	AnalysisJobDuration metric.Float64Histogram
	ActiveAnalysisJobs  metric.Int64UpDownCounter
	TokensConsumedTotal metric.Int64Counter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			// Return empty metrics to avoid nil pointer
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

// initMetrics initializes all application metrics
func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}

	var err error

	// Scrape metrics
	m.ReviewsScrapedTotal, err = meter.Int64Counter(
		"gamelens_reviews_scraped_total",
		metric.WithDescription("Total number of reviews scraped"),
		metric.WithUnit("{review}"),
	)
	if err != nil {
		return nil, err
	}

	m.ScrapePageDuration, err = meter.Float64Histogram(
		"gamelens_scrape_page_duration_seconds",
		metric.WithDescription("Duration of review page fetches in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveScrapes, err = meter.Int64UpDownCounter(
		"gamelens_active_scrapes",
		metric.WithDescription("Number of currently running scrape runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	// Analysis metrics
	m.AnalysisJobsTotal, err = meter.Int64Counter(
		"gamelens_analysis_jobs_total",
		metric.WithDescription("Total number of analysis jobs by terminal status"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	m.AnalysisJobDuration, err = meter.Float64Histogram(
		"gamelens_analysis_job_duration_seconds",
		metric.WithDescription("Duration of analysis jobs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveAnalysisJobs, err = meter.Int64UpDownCounter(
		"gamelens_active_analysis_jobs",
		metric.WithDescription("Number of currently running analysis jobs"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	m.TokensConsumedTotal, err = meter.Int64Counter(
		"gamelens_tokens_consumed_total",
		metric.WithDescription("Total number of model tokens consumed"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	// HTTP metrics
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"gamelens_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"gamelens_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Metrics initialized successfully")
	return m, nil
}

// RecordScrapeStarted records that a scrape run has started
func (m *Metrics) RecordScrapeStarted(ctx context.Context) {
	if m.ActiveScrapes != nil {
		m.ActiveScrapes.Add(ctx, 1)
	}
}

// RecordScrapeCompleted records that a scrape run has finished
func (m *Metrics) RecordScrapeCompleted(ctx context.Context) {
	if m.ActiveScrapes != nil {
		m.ActiveScrapes.Add(ctx, -1)
	}
}

// RecordReviewsScraped records persisted reviews for one app
func (m *Metrics) RecordReviewsScraped(ctx context.Context, appID uint, count int64) {
	if m.ReviewsScrapedTotal == nil || count <= 0 {
		return
	}
	m.ReviewsScrapedTotal.Add(ctx, count,
		metric.WithAttributes(attribute.Int64("app_id", int64(appID))),
	)
}

// RecordScrapePage records one review page fetch
func (m *Metrics) RecordScrapePage(ctx context.Context, durationSeconds float64, success bool) {
	if m.ScrapePageDuration == nil {
		return
	}
	m.ScrapePageDuration.Record(ctx, durationSeconds,
		metric.WithAttributes(attribute.Bool("success", success)),
	)
}

// RecordJobStarted records that an analysis job has started
func (m *Metrics) RecordJobStarted(ctx context.Context, provider, model string) {
	if m.ActiveAnalysisJobs != nil {
		m.ActiveAnalysisJobs.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("provider", provider),
				attribute.String("model", model),
			),
		)
	}
}

// RecordJobCompleted records that an analysis job reached a terminal status
func (m *Metrics) RecordJobCompleted(ctx context.Context, provider, status string, durationSeconds float64) {
	if m.ActiveAnalysisJobs != nil {
		m.ActiveAnalysisJobs.Add(ctx, -1,
			metric.WithAttributes(attribute.String("provider", provider)),
		)
	}
	if m.AnalysisJobsTotal != nil {
		m.AnalysisJobsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("provider", provider),
				attribute.String("status", status),
			),
		)
	}
	if m.AnalysisJobDuration != nil {
		m.AnalysisJobDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(attribute.String("status", status)),
		)
	}
}

// RecordTokensConsumed records model token usage for one batch
func (m *Metrics) RecordTokensConsumed(ctx context.Context, provider, model string, tokens int64) {
	if m.TokensConsumedTotal == nil || tokens <= 0 {
		return
	}
	m.TokensConsumedTotal.Add(ctx, tokens,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("model", model),
		),
	)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
				attribute.Int("status_code", statusCode),
			),
		)
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
			),
		)
	}
}
