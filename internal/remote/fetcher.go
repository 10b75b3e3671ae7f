package remote

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single fetch when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Fetcher performs one GET against a fully built URL and returns the body.
//
// Implementations return *Error with ErrCodeTransportFailed for anything
// that prevents a 2xx body from being read. Timeouts and retries belong to
// the implementation; the query handle never retries.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPFetcher fetches over net/http.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
	ids    RequestIDGenerator
	header http.Header
	logger *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithTimeout sets the timeout of the default http.Client.
// Ignored when WithHTTPClient supplies a client.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRequestIDs sets the X-Request-ID generator.
func WithRequestIDs(g RequestIDGenerator) FetcherOption {
	return func(f *HTTPFetcher) {
		f.ids = g
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.header.Add(key, value)
	}
}

// WithFetcherLogger sets the logger for request tracing.
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = l
	}
}

// NewHTTPFetcher creates an HTTPFetcher. Without options it uses an
// http.Client with DefaultTimeout and UUIDv7 request IDs.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		timeout: DefaultTimeout,
		ids:     UUIDv7Generator{},
		header:  make(http.Header),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// Fetch issues GET url with Accept: application/json.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewTransportError(url, err)
	}
	for k, vs := range f.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	requestID := f.ids.Generate()
	req.Header.Set("X-Request-ID", requestID)

	f.logger.Debug("fetching",
		"url", url,
		"request_id", requestID,
	)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, NewTransportError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, NewStatusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError(url, err)
	}

	f.logger.Debug("fetched",
		"url", url,
		"request_id", requestID,
		"status", resp.StatusCode,
		"bytes", len(body),
	)
	return body, nil
}
