package engine

import (
	"context"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// DefaultRetryConfig is the backoff policy for outbound API calls (429/5xx, dial errors).
var DefaultRetryConfig = stealth.DefaultRetryConfig

// RandomUserAgent returns a rotating desktop browser User-Agent.
func RandomUserAgent() string { return stealth.RandomUserAgent() }

// RetryHTTP executes fn with retry on transient failures and retryable status codes.
func RetryHTTP(ctx context.Context, rc stealth.RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, rc, fn)
}
