package hxmodal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Fetcher retrieves remote markup. Implementations must not block the
// caller; done is delivered later through a Scheduler.
type Fetcher interface {
	Fetch(ctx context.Context, url string, done func(body string, err error))
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string, done func(body string, err error))

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string, done func(body string, err error)) {
	f(ctx, url, done)
}

const maxFragmentBytes = 1 << 20

// HTTPFetcher performs GET requests on a background goroutine and posts the
// outcome back onto its Scheduler.
type HTTPFetcher struct {
	client    *http.Client
	scheduler Scheduler
	logger    *slog.Logger
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithFetchLogger sets the fetcher's logger.
func WithFetchLogger(l *slog.Logger) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = l
	}
}

// NewHTTPFetcher creates a fetcher delivering results on s.
func NewHTTPFetcher(s Scheduler, opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: 15 * time.Second},
		scheduler: s,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "fetcher")
	return f
}

// Fetch starts the request and returns immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, done func(body string, err error)) {
	go func() {
		body, err := f.get(ctx, url)
		if err != nil {
			f.logger.WarnContext(ctx, "fragment fetch failed", "url", url, "error", err)
		} else {
			f.logger.DebugContext(ctx, "fragment fetched", "url", url, "bytes", len(body))
		}
		f.scheduler.Post(func() { done(body, err) })
	}()
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(raw), nil
}
