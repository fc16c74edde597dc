package sources

// YouTube Data API v3 client is split across three files by responsibility:
//   youtube.go          client, key rotation, rate limiting and the shared GET primitive
//   youtube_search.go   video search, video details and channel statistics (discovery)
//   youtube_channels.go seed resolution, recent uploads and channel search (similarity)

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_studio/internal/engine"
)

const (
	ytDataAPIBase = "https://www.googleapis.com/youtube/v3"
	ytPageSize    = 50
	ytErrBodyMax  = 2048

	// Quota units per endpoint.
	costSearch = 100
	costList   = 1
)

// ErrQuotaExhausted is returned when every key in the pool hit its daily quota.
var ErrQuotaExhausted = errors.New("youtube: quota exceeded on all keys")

// APIError is a non-2xx Data API response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube API %d: %s", e.Status, engine.Truncate(e.Body, 300))
}

// YouTubeClient calls the Data API v3 with quota-aware key rotation.
type YouTubeClient struct {
	base    string
	http    *http.Client
	keys    *KeyPool
	limiter *rate.Limiter
	retry   stealth.RetryConfig
}

// Option configures a YouTubeClient.
type Option func(*YouTubeClient)

// WithBaseURL overrides the API endpoint (tests).
func WithBaseURL(base string) Option {
	return func(c *YouTubeClient) { c.base = strings.TrimRight(base, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *YouTubeClient) { c.http = h }
}

// WithRateLimit caps outbound requests per second. rps <= 0 disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *YouTubeClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithRetry sets the transient-failure backoff policy.
func WithRetry(rc stealth.RetryConfig) Option {
	return func(c *YouTubeClient) { c.retry = rc }
}

// NewYouTubeClient builds a client over the given key pool.
func NewYouTubeClient(keys *KeyPool, opts ...Option) *YouTubeClient {
	c := &YouTubeClient{
		base:    ytDataAPIBase,
		http:    engine.Cfg.HTTPClient,
		keys:    keys,
		limiter: rate.NewLimiter(rate.Inf, 0),
		retry:   engine.DefaultRetryConfig,
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

// Keys exposes the key pool for status reporting.
func (c *YouTubeClient) Keys() *KeyPool { return c.keys }

// get calls path with params, rotating keys on quota errors, and decodes JSON into out.
func (c *YouTubeClient) get(ctx context.Context, path string, params url.Values, cost int, out any) error {
	if c.keys == nil || c.keys.Len() == 0 {
		return ErrNoKeys
	}
	tried := make(map[string]bool)
	var lastErr error
	for {
		key := c.nextKey(tried)
		if key == "" {
			break
		}
		tried[key] = true

		err := c.doGet(ctx, path, params, key, out)
		if err == nil {
			c.keys.Release(key, cost)
			return nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden && IsQuotaExceeded(apiErr.Body) {
			engine.IncrYouTubeQuotaHit()
			c.keys.MarkExhausted(key)
			slog.Debug("youtube: quota exceeded, rotating key", slog.String("path", path))
			continue
		}
		if ctx.Err() == nil {
			c.keys.MarkError(key)
		}
		return err
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrQuotaExhausted, lastErr)
	}
	return ErrQuotaExhausted
}

// nextKey returns the best untried key. The first attempt always yields a key,
// falling back to the first key of the pool when none is healthy.
func (c *YouTubeClient) nextKey(tried map[string]bool) string {
	if cands := c.keys.Candidates(tried); len(cands) > 0 {
		return cands[0]
	}
	if len(tried) == 0 {
		key, err := c.keys.Acquire()
		if err == nil {
			return key
		}
	}
	return ""
}

func (c *YouTubeClient) doGet(ctx context.Context, path string, params url.Values, key string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	q.Set("key", key)
	apiURL := c.base + path + "?" + q.Encode()

	engine.IncrYouTubeAPICall()
	resp, err := engine.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		return c.http.Do(req)
	})
	if err != nil {
		engine.IncrYouTubeAPIError()
		return fmt.Errorf("youtube %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		engine.IncrYouTubeAPIError()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, ytErrBodyMax))
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode youtube %s: %w", path, err)
	}
	return nil
}

// chunks splits ids into API-page-sized batches.
func chunks(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
