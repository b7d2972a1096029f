package birdeye

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"tokenscout/internal/logger"
	"tokenscout/internal/pkg/text"

	"github.com/tidwall/gjson"
)

// maxErrorSnippet caps how much of a non-JSON error body ends up in APIError.Message.
const maxErrorSnippet = 200

// APIError is a non-success answer from the provider, either an HTTP status >= 400
// or a 2xx envelope carrying "success": false.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("birdeye api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the request may succeed when repeated.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// doRequest performs one GET and returns the raw body.
func (c *Client) doRequest(ctx context.Context, endpoint, chain, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
	if chain != "" {
		req.Header.Set("x-chain", chain)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" && !gjson.ValidBytes(body) {
			msg = text.Snippet(body, maxErrorSnippet)
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg, Body: body}
	}
	return body, nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.hook != nil {
		c.hook(endpoint, status, time.Since(start))
	}
}

// doWithRetry retries transport failures and retryable API errors with exponential
// backoff and jitter.
func (c *Client) doWithRetry(ctx context.Context, endpoint, chain, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// backoff * [0.5, 1.5)
			wait := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			logger.Debugf("[birdeye] retry %s attempt=%d wait=%s: %v", path, attempt, wait, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
		}

		body, err := c.doRequest(ctx, endpoint, chain, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// getData fetches path and returns the "data" member of the provider envelope.
// A missing data member yields a non-existent result, not an error.
func (c *Client) getData(ctx context.Context, endpoint, chain, path string, query url.Values) (gjson.Result, error) {
	body, err := c.doWithRetry(ctx, endpoint, chain, path, query)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: invalid json response", endpoint)
	}
	root := gjson.ParseBytes(body)
	if ok := root.Get("success"); ok.Exists() && ok.Type == gjson.False {
		msg := root.Get("message").String()
		if msg == "" {
			msg = "request unsuccessful"
		}
		return gjson.Result{}, &APIError{StatusCode: http.StatusOK, Message: msg, Body: body}
	}
	return root.Get("data"), nil
}
