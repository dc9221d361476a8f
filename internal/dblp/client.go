// Package dblp provides a rate-limited client for the DBLP publication
// search API and its per-publication BibTeX records.
package dblp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the DBLP API base URL.
	BaseURL = "https://dblp.org"

	// SearchPath is the publication search endpoint under BaseURL.
	SearchPath = "/search/publ/api"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries bounds the attempts per title.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the pause after a failed attempt.
	DefaultRetryDelay = 2 * time.Second

	// RateLimit caps outbound requests per second. DBLP asks clients to
	// stay well under 2 req/s.
	RateLimit = 1.0
)

// Client is a rate-limited HTTP client for DBLP.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithMaxRetries sets the attempt bound per title.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the pause after a failed attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithSleeper replaces the sleep function, letting tests skip real waits.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithLimiter sets a custom rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger for attempt-level messages.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a DBLP client with default settings.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		sleep:      time.Sleep,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRecord searches DBLP by title and returns the raw BibTeX record
// of the top-ranked hit. Returns "" when no record could be retrieved:
// zero search hits end the search immediately without sleeping, while
// transient failures are retried up to the configured bound with a
// fixed delay after every failed attempt. A bad search status logs at
// warn; exception-class failures (transport, decode, record fetch) log
// at error. Failures are logged, never returned; the only error is a
// cancelled context.
func (c *Client) FetchRecord(ctx context.Context, title, key string) (string, error) {
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		res, err := c.attempt(ctx, title)
		if err != nil {
			return "", err
		}

		switch res.status {
		case attemptSuccess:
			return res.record, nil
		case attemptAbsent:
			c.logger.Info().
				Str("key", key).
				Str("title", title).
				Msg("no results found on DBLP")
			return "", nil
		case attemptTransient:
			evt := c.logger.Warn()
			if res.exception {
				evt = c.logger.Error()
			}
			evt.
				Int("attempt", attempt+1).
				Str("key", key).
				Str("title", title).
				Str("reason", res.reason).
				Msg("DBLP search attempt failed")
			c.sleep(c.retryDelay)
		}
	}

	c.logger.Error().
		Int("attempts", c.maxRetries).
		Str("key", key).
		Str("title", title).
		Msg("all DBLP search attempts failed")
	return "", nil
}

// attempt performs one search plus optional record fetch. All failure
// modes map to a tagged result; the only error returned is a context
// cancellation.
func (c *Client) attempt(ctx context.Context, title string) (attemptResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return attemptResult{}, fmt.Errorf("rate limiter: %w", err)
	}

	searchURL := c.baseURL + SearchPath + "?" + url.Values{
		"q":      {title},
		"format": {"json"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return attemptResult{status: attemptTransient, reason: err.Error(), exception: true}, nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return attemptResult{}, ctx.Err()
		}
		return attemptResult{status: attemptTransient, reason: err.Error(), exception: true}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return attemptResult{status: attemptTransient, reason: fmt.Sprintf("search returned HTTP %d", resp.StatusCode)}, nil
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return attemptResult{status: attemptTransient, reason: fmt.Sprintf("decoding search response: %v", err), exception: true}, nil
	}

	hits := sr.Result.Hits.Hit
	if len(hits) == 0 {
		return attemptResult{status: attemptAbsent}, nil
	}

	// Only the top-ranked hit is consulted.
	recordURL := hits[0].Info.URL
	if recordURL == "" {
		return attemptResult{status: attemptTransient, reason: "top hit has no record URL"}, nil
	}

	record, err := c.fetchBibTeX(ctx, recordURL)
	if err != nil {
		if ctx.Err() != nil {
			return attemptResult{}, ctx.Err()
		}
		return attemptResult{status: attemptTransient, reason: err.Error(), exception: true}, nil
	}
	return attemptResult{status: attemptSuccess, record: record}, nil
}

// fetchBibTeX retrieves the BibTeX rendition of a DBLP record URL.
func (c *Client) fetchBibTeX(ctx context.Context, recordURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordURL+".bib", nil)
	if err != nil {
		return "", fmt.Errorf("creating record request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("record fetch returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading record body: %w", err)
	}
	return string(body), nil
}
