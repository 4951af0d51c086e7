// Package feed fetches the published bill document, keeping the last good
// copy on disk for when the network fails.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// ErrNoData means neither the network nor the cache produced a document.
var ErrNoData = errors.New("feed: no bill data available")

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Result is a fetched document. FetchErr holds the network failure when the
// document came from the cache.
type Result struct {
	Doc       bill.Document
	FromCache bool
	FetchErr  error
}

// Client fetches the bill document from url, which is either an HTTP(S)
// address or a file: URL naming the collector's published copy.
type Client struct {
	url         string
	cachePath   string
	httpClient  *http.Client
	retries     int
	backoffBase time.Duration
	log         *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets how many times a 429 or 5xx response is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithBackoff sets the first retry delay; later delays double.
func WithBackoff(base time.Duration) Option {
	return func(c *Client) { c.backoffBase = base }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client. An empty cachePath disables the cache.
func New(url, cachePath string, opts ...Option) *Client {
	c := &Client{
		url:         url,
		cachePath:   cachePath,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		retries:     3,
		backoffBase: time.Second,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("component", "feed"))
	return c
}

// Fetch downloads and parses the document, refreshing the cache on success.
// When the download or parse fails the cached copy is returned instead.
func (c *Client) Fetch(ctx context.Context) (Result, error) {
	doc, raw, err := c.fetch(ctx)
	if err == nil {
		if werr := c.writeCache(raw); werr != nil {
			c.log.Warn("write cache failed", zap.Error(werr))
		}
		return Result{Doc: doc}, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	c.log.Warn("fetch bill document failed, trying cache", zap.String("url", c.url), zap.Error(err))
	cached, cerr := c.readCache()
	if cerr != nil {
		c.log.Error("no bill data available", zap.Error(cerr))
		return Result{}, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	return Result{Doc: cached, FromCache: true, FetchErr: err}, nil
}

func (c *Client) fetch(ctx context.Context) (bill.Document, []byte, error) {
	raw, err := c.read(ctx)
	if err != nil {
		return bill.Document{}, nil, err
	}
	doc, err := bill.ParseDocument(raw)
	if err != nil {
		return bill.Document{}, nil, err
	}
	return doc, raw, nil
}

// read loads a file: URL straight from disk and anything else over HTTP.
func (c *Client) read(ctx context.Context) ([]byte, error) {
	if path, ok := localPath(c.url); ok {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return raw, nil
	}
	return c.get(ctx)
}

func localPath(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	p := u.Path
	if u.Opaque != "" {
		p = u.Opaque
	}
	return filepath.FromSlash(p), p != ""
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	var lastErr *StatusError
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(c.backoffDelay(attempt, lastErr))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", c.url, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", c.url, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		bodyStr := string(body)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: bodyStr}
		if resp.StatusCode == http.StatusTooManyRequests {
			statusErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = statusErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = statusErr
			continue
		}
		return nil, statusErr
	}
	return nil, lastErr
}

func (c *Client) backoffDelay(attempt int, lastErr *StatusError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.backoffBase * time.Duration(1<<(attempt-1))
}

func (c *Client) readCache() (bill.Document, error) {
	if c.cachePath == "" {
		return bill.Document{}, errors.New("cache disabled")
	}
	raw, err := os.ReadFile(c.cachePath)
	if err != nil {
		return bill.Document{}, fmt.Errorf("read cache: %w", err)
	}
	return bill.ParseDocument(raw)
}

func (c *Client) writeCache(raw []byte) error {
	if c.cachePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.cachePath), 0o755); err != nil {
		return err
	}
	tmp := c.cachePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.cachePath)
}

// CachePath is where the last good document is kept.
func (c *Client) CachePath() string {
	return c.cachePath
}
