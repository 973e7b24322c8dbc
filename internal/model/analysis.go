// Package model defines the data models for the application.
// This file defines the analysis job and per-review result models.
package model

import (
	"time"
)

// JobStatus represents the status of an analysis job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
)

// ResultStatus represents the status of a single analysis result
type ResultStatus string

const (
	ResultStatusPending  ResultStatus = "pending"
	ResultStatusComplete ResultStatus = "complete"
	ResultStatusError    ResultStatus = "error"
)

// AnalysisJob represents one LLM analysis run over a filtered review set.
// Status advances monotonically to completed or error.
type AnalysisJob struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Status JobStatus `gorm:"size:20;not null;default:pending;index" json:"status"`

	// Progress accounting; processed_count never exceeds total_reviews
	TotalReviews   int `gorm:"default:0" json:"total_reviews"`
	ProcessedCount int `gorm:"default:0" json:"processed_count"`

	// Timing
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Settings snapshot (filters, provider, model, batching) as submitted
	Settings JSONMap `gorm:"type:json" json:"settings,omitempty"`

	// Error handling
	Error string `gorm:"type:text" json:"error,omitempty"`

	// Relations
	Results []AnalysisResult `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}

// AnalysisResult is one per-review work unit of an analysis job.
// The review text and prompt are snapshotted so the result survives review
// deletion; the review reference is weak. Terminal status is set exactly once.
type AnalysisResult struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JobID uint `gorm:"not null;index" json:"job_id"`

	// Weak reference; the review row may be deleted independently
	ReviewID *string `gorm:"size:32;index" json:"review_id,omitempty"`

	// Snapshot of the dispatched request
	ReviewText      string `gorm:"type:text" json:"review_text"`
	Prompt          string `gorm:"type:text" json:"prompt"`
	Model           string `gorm:"size:255" json:"model"`
	Provider        string `gorm:"size:100" json:"provider"`
	ReasoningEffort string `gorm:"size:20" json:"reasoning_effort,omitempty"`

	// Populated on completion
	AnalysisOutput string `gorm:"type:text" json:"analysis_output,omitempty"` // canonical raw output
	AnalysedReview string `gorm:"type:text" json:"analysed_review,omitempty"` // mapped content
	InputTokens    *int64 `json:"input_tokens,omitempty"`
	OutputTokens   *int64 `json:"output_tokens,omitempty"`
	TotalTokens    *int64 `json:"total_tokens,omitempty"`

	Status      ResultStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	Error       string       `gorm:"type:text" json:"error,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// AnalysisAllModels returns all analysis-related models for auto-migration
func AnalysisAllModels() []interface{} {
	return []interface{}{
		&AnalysisJob{},
		&AnalysisResult{},
	}
}
