package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gamelens/gamelens/internal/config"
	"github.com/gamelens/gamelens/pkg/errors"
	"github.com/gamelens/gamelens/pkg/logger"
)

const (
	// userAgent identifies requests to the upstream store
	userAgent = "GameLens/1.0"

	// maxSearchResults caps storesearch responses
	maxSearchResults = 50
)

// ReviewsQuery holds the appreviews request parameters for one page.
type ReviewsQuery struct {
	AppID      uint
	Cursor     string // "*" for the first page
	Language   string // store language name or "all"
	ReviewType string // all, positive, negative
	DayRange   int    // 0 means unlimited
	NumPerPage int
}

// Client talks to the store front and web API endpoints.
type Client struct {
	storeBase  string
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a store API client from configuration.
func NewClient(cfg *config.SteamConfig) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		storeBase: cfg.StoreBaseURL,
		apiBase:   cfg.APIBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// get performs a GET request and returns the response body.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSteamRequest, "failed to create request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSteamRequest, "request to store API failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, errors.New(errors.ErrCodeSteamStatus,
			fmt.Sprintf("store API returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSteamRequest, "failed to read response body", err)
	}
	return body, nil
}

// FetchReviews retrieves one page of reviews for an app.
// The returned page's Cursor points at the next page; an empty review list
// means the walk is exhausted.
func (c *Client) FetchReviews(ctx context.Context, query ReviewsQuery) (*ReviewsPage, error) {
	params := url.Values{}
	params.Set("json", "1")
	params.Set("filter", "recent")
	params.Set("purchase_type", "all")
	params.Set("cursor", query.Cursor)
	params.Set("num_per_page", strconv.Itoa(query.NumPerPage))

	language := query.Language
	if language == "" {
		language = "all"
	}
	params.Set("language", language)

	reviewType := query.ReviewType
	if reviewType == "" {
		reviewType = "all"
	}
	params.Set("review_type", reviewType)

	if query.DayRange > 0 {
		params.Set("day_range", strconv.Itoa(query.DayRange))
	}

	rawURL := fmt.Sprintf("%s/appreviews/%d?%s", c.storeBase, query.AppID, params.Encode())

	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var page ReviewsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSteamDecode, "failed to decode reviews page", err)
	}
	if page.Success != 1 {
		return nil, errors.New(errors.ErrCodeSteamStatus, "store API reported failure for appreviews")
	}

	logger.Debug("Fetched reviews page",
		zap.Uint("app_id", query.AppID),
		zap.Int("reviews", len(page.Reviews)),
	)
	return &page, nil
}

// SearchApps searches the store catalog by free-form term.
func (c *Client) SearchApps(ctx context.Context, term string) ([]SearchItem, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("l", "english")
	params.Set("cc", "US")

	rawURL := fmt.Sprintf("%s/api/storesearch/?%s", c.storeBase, params.Encode())

	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSteamDecode, "failed to decode search response", err)
	}

	items := result.Items
	if len(items) > maxSearchResults {
		items = items[:maxSearchResults]
	}
	return items, nil
}

// GetAppName resolves an app id to its store title.
// Returns ErrCodeSteamNotFound when the id is unknown.
func (c *Client) GetAppName(ctx context.Context, appID uint) (string, error) {
	params := url.Values{}
	params.Set("appids", strconv.FormatUint(uint64(appID), 10))
	params.Set("filters", "basic")

	rawURL := fmt.Sprintf("%s/api/appdetails?%s", c.storeBase, params.Encode())

	body, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	var result map[string]appDetailsEntry
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.Wrap(errors.ErrCodeSteamDecode, "failed to decode appdetails response", err)
	}

	entry, ok := result[strconv.FormatUint(uint64(appID), 10)]
	if !ok || !entry.Success || entry.Data.Name == "" {
		return "", errors.New(errors.ErrCodeSteamNotFound,
			fmt.Sprintf("app %d not found", appID))
	}
	return entry.Data.Name, nil
}

// FetchAppList downloads the full title catalog from the web API.
// Entries with empty names are dropped.
func (c *Client) FetchAppList(ctx context.Context) ([]AppListEntry, error) {
	rawURL := c.apiBase + "/ISteamApps/GetAppList/v2/"

	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var result appListResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSteamDecode, "failed to decode applist response", err)
	}

	apps := make([]AppListEntry, 0, len(result.AppList.Apps))
	for _, app := range result.AppList.Apps {
		if app.Name == "" {
			continue
		}
		apps = append(apps, app)
	}

	logger.Info("Fetched title catalog", zap.Int("apps", len(apps)))
	return apps, nil
}
