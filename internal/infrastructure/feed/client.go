package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

const (
	maxAttempts      = 3
	maxBodyBytes     = 8 << 20
	defaultTimeout   = 30 * time.Second
	defaultRPS       = 2.0
	defaultBurst     = 5
	defaultPageLimit = 100
	userAgent        = "CaskLedger/1.0"
)

// Options configures the feed client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	Logger            *slog.Logger
}

// Client reads the external product feed over HTTP. Requests are paced by a token
// bucket and transient failures (network errors, 429, 5xx) are retried with
// exponential backoff.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// pageResponse is the wire shape of GET /records
type pageResponse struct {
	Records    []map[string]interface{} `json:"records"`
	NextCursor string                   `json:"nextCursor"`
}

// NewClient creates a feed client
func NewClient(opts Options) *Client {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      opts.APIKey,
		baseURL:     opts.BaseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:      logger.With("component", "feed"),
	}
}

// FetchPage returns up to limit records starting at cursor ("" is the first page).
// Records the mapper cannot use are returned in FeedPage.Rejected.
func (c *Client) FetchPage(ctx context.Context, cursor string, limit int) (*domain.FeedPage, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	body, err := c.get(ctx, "/records", params)
	if err != nil {
		return nil, err
	}

	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode page: %v", domain.ErrFeedFailure, err)
	}

	page := &domain.FeedPage{NextCursor: resp.NextCursor}
	for i, raw := range resp.Records {
		rec, err := MapRecord(raw)
		if err != nil {
			page.Rejected = append(page.Rejected, domain.RowError{
				Ref:     rejectedRef(raw, cursor, i),
				Kind:    domain.Kind(err),
				Message: err.Error(),
			})
			continue
		}
		page.Records = append(page.Records, *rec)
	}

	c.logger.Debug("feed page fetched",
		"cursor", cursor, "records", len(page.Records), "rejected", len(page.Rejected), "next", page.NextCursor)
	return page, nil
}

// GetRecord fetches a single record by feed id
func (c *Client) GetRecord(ctx context.Context, feedID string) (*domain.ExternalRecord, error) {
	if feedID == "" {
		return nil, domain.NewValidationError("feedId", "is required")
	}

	body, err := c.get(ctx, "/records/"+url.PathEscape(feedID), url.Values{})
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode record: %v", domain.ErrFeedFailure, err)
	}
	return MapRecord(raw)
}

// get performs a paced GET with retries and returns the response body
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	reqURL := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, status, err := c.doRequest(ctx, reqURL)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("feed request failed", "path", path, "attempt", attempt, "error", err)
			lastErr = err
		case status == http.StatusOK:
			return body, nil
		case status == http.StatusNotFound:
			return nil, domain.ErrEntryNotFound
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			c.logger.Warn("feed returned retryable status", "path", path, "attempt", attempt, "status", status)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrFeedFailure, status)
		default:
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFeedFailure, status, truncate(body, 200))
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt)):
			}
		}
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrFeedFailure, err)
	}
	defer resp.Body.Close()

	body, err := readLimitedBody(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", domain.ErrFeedFailure, err)
	}
	return body, resp.StatusCode, nil
}

// exponentialBackoff returns the delay before retrying after attempt: 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// readLimitedBody reads at most limit bytes and fails when the body is larger
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}

func rejectedRef(raw map[string]interface{}, cursor string, index int) string {
	if id := rawFeedID(raw); id != "" {
		return "feed:" + id
	}
	if cursor == "" {
		cursor = "start"
	}
	return fmt.Sprintf("feed page %s #%d", cursor, index+1)
}
