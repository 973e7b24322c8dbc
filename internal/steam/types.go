// Package steam implements the upstream store API client used for review
// ingestion and catalog lookups.
package steam

import (
	"strconv"
	"strings"
)

// FlexFloat decodes JSON numbers that the store API sometimes serializes as
// strings (e.g. weighted_vote_score).
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// ReviewAuthor is the nested author block of an appreviews entry.
type ReviewAuthor struct {
	SteamID              string  `json:"steamid"`
	NumGamesOwned        int64   `json:"num_games_owned"`
	NumReviews           int64   `json:"num_reviews"`
	PlaytimeForever      float64 `json:"playtime_forever"`        // minutes
	PlaytimeLastTwoWeeks int64   `json:"playtime_last_two_weeks"` // minutes
	PlaytimeAtReview     float64 `json:"playtime_at_review"`      // minutes
	LastPlayed           int64   `json:"last_played"`             // unix seconds
}

// ReviewEntry is one review as returned by the appreviews endpoint.
type ReviewEntry struct {
	RecommendationID         string       `json:"recommendationid"`
	Author                   ReviewAuthor `json:"author"`
	Language                 string       `json:"language"`
	Review                   string       `json:"review"`
	TimestampCreated         int64        `json:"timestamp_created"`
	TimestampUpdated         int64        `json:"timestamp_updated"`
	VotedUp                  bool         `json:"voted_up"`
	VotesHelpful             int64        `json:"votes_helpful"`
	VotesFunny               int64        `json:"votes_funny"`
	WeightedVoteScore        FlexFloat    `json:"weighted_vote_score"`
	CommentCount             int64        `json:"comment_count"`
	SteamPurchase            bool         `json:"steam_purchase"`
	ReceivedForFree          bool         `json:"received_for_free"`
	WrittenDuringEarlyAccess bool         `json:"written_during_early_access"`
}

// QuerySummary carries aggregate counts; total_reviews is only populated on
// the first page of a cursor walk.
type QuerySummary struct {
	NumReviews    int   `json:"num_reviews"`
	ReviewScore   int   `json:"review_score"`
	TotalPositive int64 `json:"total_positive"`
	TotalNegative int64 `json:"total_negative"`
	TotalReviews  int64 `json:"total_reviews"`
}

// ReviewsPage is the appreviews response envelope.
type ReviewsPage struct {
	Success      int           `json:"success"`
	QuerySummary QuerySummary  `json:"query_summary"`
	Cursor       string        `json:"cursor"`
	Reviews      []ReviewEntry `json:"reviews"`
}

// SearchItem is one storesearch hit.
type SearchItem struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// searchResponse is the storesearch envelope.
type searchResponse struct {
	Total int          `json:"total"`
	Items []SearchItem `json:"items"`
}

// appDetailsEntry is one appdetails result keyed by app id.
type appDetailsEntry struct {
	Success bool `json:"success"`
	Data    struct {
		Name       string `json:"name"`
		Type       string `json:"type"`
		SteamAppID uint   `json:"steam_appid"`
	} `json:"data"`
}

// AppListEntry is one applist row from the web API.
type AppListEntry struct {
	AppID uint   `json:"appid"`
	Name  string `json:"name"`
}

// appListResponse is the ISteamApps/GetAppList envelope.
type appListResponse struct {
	AppList struct {
		Apps []AppListEntry `json:"apps"`
	} `json:"applist"`
}
