// Package scraper implements the review ingestion engine: a resumable,
// rate-limited cursor walk over the upstream review API with live progress.
package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/internal/model"
	"github.com/gamelens/gamelens/internal/steam"
	"github.com/gamelens/gamelens/internal/store"
	"github.com/gamelens/gamelens/pkg/errors"
)

// FilterMode selects how a boolean review attribute narrows the harvest.
type FilterMode string

const (
	FilterModeInclude FilterMode = "include" // attribute ignored
	FilterModeExclude FilterMode = "exclude" // rows with the attribute are dropped
	FilterModeOnly    FilterMode = "only"    // only rows with the attribute are kept
)

func (m FilterMode) valid() bool {
	switch m {
	case "", FilterModeInclude, FilterModeExclude, FilterModeOnly:
		return true
	}
	return false
}

// Settings holds the harvest parameters for one title.
// A zero MaxReviews with CompleteScraping false means "use the configured default".
type Settings struct {
	MaxReviews       int        `json:"max_reviews"`
	CompleteScraping bool       `json:"complete_scraping"`
	RateLimitRPM     int        `json:"rate_limit_rpm"`
	Language         string     `json:"language"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"` // inclusive; expanded to end of day
	EarlyAccess      FilterMode `json:"early_access"`
	ReceivedForFree  FilterMode `json:"received_for_free"`
	MinPlaytime      *float64   `json:"min_playtime,omitempty"` // hours
	MaxPlaytime      *float64   `json:"max_playtime,omitempty"` // hours
}

// Request describes one ingestion run: which titles to harvest and with
// what settings. An override replaces the defaults wholesale for its title.
type Request struct {
	// AppIDs limits the run to specific titles; empty means all tracked games.
	AppIDs []uint `json:"app_ids,omitempty"`

	Defaults  Settings           `json:"defaults"`
	Overrides map[uint]*Settings `json:"overrides,omitempty"`
}

// DefaultSettings derives run defaults from the scraper configuration.
func DefaultSettings(cfg *config.ScraperConfig) Settings {
	return Settings{
		MaxReviews:   cfg.MaxReviews,
		RateLimitRPM: cfg.RateLimitRPM,
		Language:     cfg.Language,
	}
}

// Validate checks one settings block. Playtime bounds must be ordered when
// both are set; this is enforced before the run starts, not per page.
func (s *Settings) Validate() *errors.AppError {
	if s.RateLimitRPM < 1 {
		return errors.New(errors.ErrCodeValidation, "rate_limit_rpm must be at least 1")
	}
	if s.MaxReviews < 0 {
		return errors.New(errors.ErrCodeValidation, "max_reviews cannot be negative")
	}
	if !s.CompleteScraping && s.MaxReviews == 0 {
		return errors.New(errors.ErrCodeValidation, "max_reviews is required unless complete_scraping is set")
	}
	if !s.EarlyAccess.valid() {
		return errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("invalid early_access mode '%s'", s.EarlyAccess))
	}
	if !s.ReceivedForFree.valid() {
		return errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("invalid received_for_free mode '%s'", s.ReceivedForFree))
	}
	if s.MinPlaytime != nil && s.MaxPlaytime != nil && *s.MaxPlaytime <= *s.MinPlaytime {
		return errors.New(errors.ErrCodeValidation, "max_playtime must be greater than min_playtime")
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return errors.New(errors.ErrCodeValidation, "end_date cannot be before start_date")
	}
	return nil
}

// Validate checks the defaults and every per-title override.
func (r *Request) Validate() *errors.AppError {
	if err := r.Defaults.Validate(); err != nil {
		return err
	}
	for appID, override := range r.Overrides {
		if override == nil {
			continue
		}
		if err := override.Validate(); err != nil {
			return errors.New(errors.ErrCodeValidation,
				fmt.Sprintf("override for app %d: %s", appID, err.Message))
		}
	}
	return nil
}

// SettingsFor returns the effective settings for a title.
func (r *Request) SettingsFor(appID uint) Settings {
	if override, ok := r.Overrides[appID]; ok && override != nil {
		return *override
	}
	return r.Defaults
}

// cursorParams is the subset of settings that affects cursor traversal.
// Two runs with equal cursorParams may resume from each other's position.
type cursorParams struct {
	Language        string
	StartDate       string
	EndDate         string
	EarlyAccess     FilterMode
	ReceivedForFree FilterMode
}

// ParamsHash returns a stable hash over the traversal-affecting parameters,
// used to namespace stored cursors.
func (s *Settings) ParamsHash() (string, error) {
	params := cursorParams{
		Language:        s.storeLanguage(),
		EarlyAccess:     s.EarlyAccess,
		ReceivedForFree: s.ReceivedForFree,
	}
	if s.StartDate != nil {
		params.StartDate = s.StartDate.UTC().Format("2006-01-02")
	}
	if s.EndDate != nil {
		params.EndDate = s.EndDate.UTC().Format("2006-01-02")
	}

	hash, err := hashstructure.Hash(params, hashstructure.FormatV2, nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to hash cursor params", err)
	}
	return fmt.Sprintf("%016x", hash), nil
}

// storeLanguage returns the upstream store language name for the API call,
// "all" when no language filter is set.
func (s *Settings) storeLanguage() string {
	if s.Language == "" {
		return "all"
	}
	return config.NormalizeReviewLanguage(s.Language)
}

// effectiveEndDate expands the inclusive end date to the last instant of that day.
func (s *Settings) effectiveEndDate() *time.Time {
	if s.EndDate == nil {
		return nil
	}
	d := s.EndDate.UTC()
	end := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
	return &end
}

// storeFilter translates the settings into the store's review filter grammar,
// used to count already-harvested rows under the same predicates.
func (s *Settings) storeFilter(appID uint) store.ReviewFilter {
	filter := store.ReviewFilter{
		AppID:       appID,
		Language:    s.storeLanguage(),
		MinPlaytime: s.MinPlaytime,
		MaxPlaytime: s.MaxPlaytime,
		StartDate:   s.StartDate,
		EndDate:     s.effectiveEndDate(),
	}
	switch s.EarlyAccess {
	case FilterModeExclude:
		v := false
		filter.EarlyAccess = &v
	case FilterModeOnly:
		v := true
		filter.EarlyAccess = &v
	}
	switch s.ReceivedForFree {
	case FilterModeExclude:
		v := false
		filter.ReceivedForFree = &v
	case FilterModeOnly:
		v := true
		filter.ReceivedForFree = &v
	}
	return filter
}

// matches reports whether one upstream review entry passes all filters.
func (s *Settings) matches(entry *steam.ReviewEntry) bool {
	reviewDate := time.Unix(entry.TimestampCreated, 0).UTC()
	if s.StartDate != nil && reviewDate.Before(s.StartDate.UTC()) {
		return false
	}
	if end := s.effectiveEndDate(); end != nil && reviewDate.After(*end) {
		return false
	}

	if lang := s.storeLanguage(); lang != "all" && strings.ToLower(entry.Language) != lang {
		return false
	}

	hours := entry.Author.PlaytimeForever / 60
	if s.MinPlaytime != nil && hours < *s.MinPlaytime {
		return false
	}
	if s.MaxPlaytime != nil && hours > *s.MaxPlaytime {
		return false
	}

	switch s.EarlyAccess {
	case FilterModeExclude:
		if entry.WrittenDuringEarlyAccess {
			return false
		}
	case FilterModeOnly:
		if !entry.WrittenDuringEarlyAccess {
			return false
		}
	}
	switch s.ReceivedForFree {
	case FilterModeExclude:
		if entry.ReceivedForFree {
			return false
		}
	case FilterModeOnly:
		if !entry.ReceivedForFree {
			return false
		}
	}
	return true
}

// toReview converts an upstream entry into its stored form.
func toReview(appID uint, entry *steam.ReviewEntry, scrapedAt time.Time) model.Review {
	reviewType := model.ReviewTypeNegative
	if entry.VotedUp {
		reviewType = model.ReviewTypePositive
	}
	return model.Review{
		ReviewID:      entry.RecommendationID,
		AppID:         appID,
		ReviewText:    entry.Review,
		ReviewDate:    time.Unix(entry.TimestampCreated, 0).UTC(),
		PlaytimeHours: entry.Author.PlaytimeForever / 60,
		ReviewType:    reviewType,
		Language:      strings.ToLower(entry.Language),

		EarlyAccess:     entry.WrittenDuringEarlyAccess,
		ReceivedForFree: entry.ReceivedForFree,

		TimestampUpdated:  entry.TimestampUpdated,
		VotesHelpful:      entry.VotesHelpful,
		WeightedVoteScore: float64(entry.WeightedVoteScore),
		CommentCount:      entry.CommentCount,
		SteamPurchase:     entry.SteamPurchase,

		AuthorNumGamesOwned:        entry.Author.NumGamesOwned,
		AuthorNumReviews:           entry.Author.NumReviews,
		AuthorPlaytimeLastTwoWeeks: entry.Author.PlaytimeLastTwoWeeks,
		AuthorLastPlayed:           entry.Author.LastPlayed,

		ScrapedAt: scrapedAt,
	}
}
