// Package birdeye is the REST client for a Birdeye-compatible market data provider.
package birdeye

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://public-api.birdeye.so"
	defaultLookback = 5 * time.Minute
)

// RequestHook observes every finished HTTP attempt. status is 0 on transport errors.
type RequestHook func(endpoint string, status int, elapsed time.Duration)

// Client provides access to the provider REST API. It is safe for concurrent use;
// the only mutable state is the per-chain new-listings cursor.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	hook       RequestHook

	maxRetries   int
	retryBackoff time.Duration

	now      func() time.Time
	lookback time.Duration
	cursors  *cursorSet
}

// Option configures a Client.
type Option func(*Client)

// New creates a client authenticated with the static apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		maxRetries:   3,
		retryBackoff: 500 * time.Millisecond,
		now:          time.Now,
		lookback:     defaultLookback,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cursors = newCursorSet(c.now().Add(-c.lookback))
	return c
}

// WithBaseURL points the client at another deployment (or a test server).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries sets how many times a retryable failure is retried and the initial backoff.
func WithRetries(max int, backoff time.Duration) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// WithRateLimit caps outgoing requests across all goroutines. perSecond <= 0 disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock replaces time.Now, used for cursor windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLookback sets how far before startup the first new-listings window begins.
func WithLookback(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.lookback = d
		}
	}
}

// WithRequestHook installs an observer for request latency and status.
func WithRequestHook(h RequestHook) Option {
	return func(c *Client) {
		c.hook = h
	}
}
