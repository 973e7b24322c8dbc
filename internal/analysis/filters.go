package analysis

import (
	"time"

	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/errors"
)

// Filters selects the reviews an analysis job (or preview) operates on.
// The grammar matches the ingestion filters minus traversal concerns.
type Filters struct {
	AppID           uint       `json:"app_id,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"` // inclusive day, expanded to end of day
	ReviewType      string     `json:"review_type,omitempty"`
	MinPlaytime     *float64   `json:"min_playtime,omitempty"`
	MaxPlaytime     *float64   `json:"max_playtime,omitempty"`
	EarlyAccess     string     `json:"early_access,omitempty"`       // include, exclude, only
	ReceivedForFree string     `json:"received_for_free,omitempty"`  // include, exclude, only
	Language        string     `json:"language,omitempty"`
}

// Validate checks filter ranges before a job or preview starts.
func (f *Filters) Validate() *errors.AppError {
	if f.MinPlaytime != nil && f.MaxPlaytime != nil && *f.MaxPlaytime <= *f.MinPlaytime {
		return errors.New(errors.ErrCodeValidation, "max_playtime must be greater than min_playtime")
	}
	switch f.ReviewType {
	case "", "all", string(model.ReviewTypePositive), string(model.ReviewTypeNegative):
	default:
		return errors.New(errors.ErrCodeValidation, "invalid review_type '"+f.ReviewType+"'")
	}
	for _, mode := range []string{f.EarlyAccess, f.ReceivedForFree} {
		switch mode {
		case "", "include", "exclude", "only":
		default:
			return errors.New(errors.ErrCodeValidation, "invalid filter mode '"+mode+"'")
		}
	}
	return nil
}

// ToReviewFilter translates the payload into the store's filter grammar.
func (f *Filters) ToReviewFilter() store.ReviewFilter {
	filter := store.ReviewFilter{
		AppID:       f.AppID,
		MinPlaytime: f.MinPlaytime,
		MaxPlaytime: f.MaxPlaytime,
		StartDate:   f.StartDate,
	}

	if f.EndDate != nil {
		d := f.EndDate.UTC()
		end := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
		filter.EndDate = &end
	}

	if f.ReviewType != "" && f.ReviewType != "all" {
		filter.ReviewType = model.ReviewType(f.ReviewType)
	}

	if f.Language != "" && f.Language != "Any" {
		filter.Language = config.NormalizeReviewLanguage(f.Language)
	}

	switch f.EarlyAccess {
	case "exclude":
		v := false
		filter.EarlyAccess = &v
	case "only":
		v := true
		filter.EarlyAccess = &v
	}
	switch f.ReceivedForFree {
	case "exclude":
		v := false
		filter.ReceivedForFree = &v
	case "only":
		v := true
		filter.ReceivedForFree = &v
	}
	return filter
}
