package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client downloads remote datasets with optional Bearer auth and retry logic.
type Client struct {
	token      string
	httpClient *http.Client
	backoff    time.Duration
	maxRetries int
}

// HTTPError represents a non-2xx HTTP response.
type HTTPError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string // Retry-After header value for 429s
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures Client behavior.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the timeout of a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithBackoff sets the delay before the first retry. Later retries double it.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// New creates a Client. Defaults: 5 minute timeout, 1s backoff, 3 retries.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		backoff:    time.Second,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsRemote reports whether path is an http or https URL.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Download writes the body of url to w and returns the byte count. It retries
// on 429 (honouring Retry-After) and 5xx with exponential backoff. A failure
// while copying the body is not retried, since w may hold a partial write.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	var lastErr *HTTPError
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.delay(attempt, lastErr)
			slog.Warn("retrying download", "url", url, "attempt", attempt, "status", lastErr.StatusCode, "wait", wait)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return 0, ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, fmt.Errorf("fetch: %w", err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, fmt.Errorf("fetch: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			n, err := io.Copy(w, resp.Body)
			resp.Body.Close()
			if err != nil {
				return n, fmt.Errorf("fetch: read body: %w", err)
			}
			return n, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}

		if resp.StatusCode == http.StatusTooManyRequests {
			httpErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = httpErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = httpErr
			continue
		}
		return 0, fmt.Errorf("fetch %s: %w", url, httpErr)
	}
	return 0, fmt.Errorf("fetch %s: giving up after %d retries: %w", url, c.maxRetries, lastErr)
}

// DownloadTemp saves url into a new temporary file and returns its path with
// a cleanup func that removes it. On error no file is left behind.
func (c *Client) DownloadTemp(ctx context.Context, url, pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("fetch: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	n, err := c.Download(ctx, url, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("fetch: %w", cerr)
	}
	if err != nil {
		cleanup()
		return "", nil, err
	}
	slog.Debug("dataset downloaded", "url", url, "bytes", n, "path", f.Name())
	return f.Name(), cleanup, nil
}

// delay returns the wait before a retry attempt.
func (c *Client) delay(attempt int, lastErr *HTTPError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.backoff << (attempt - 1)
}
