package mailbench

import (
	"net/http"
	"time"
)

const (
	defaultBaseURL = "http://localhost:5001"
	defaultTimeout = 30 * time.Second
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	retries      int
	retryOn      []int
	sessionToken string
}

// Option configures the client.
type Option func(*clientConfig)

// WithBaseURL sets the backend base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for API calls.
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
// Default: [408, 500, 502, 503, 504]. 429 must not be listed; the
// backend uses it to report quota exhaustion.
func WithRetryOn(statusCodes []int) Option {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithSessionToken resumes a previously saved session instead of
// starting anonymous. Pair with Client.SessionToken to persist sessions
// across processes.
func WithSessionToken(token string) Option {
	return func(c *clientConfig) {
		c.sessionToken = token
	}
}
