package remote

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/remoteq/internal/dialect"
)

// FetchRecord describes one completed (or failed) enumeration.
type FetchRecord struct {
	Endpoint  string
	Dialect   string
	URL       string
	Items     int
	Total     int64
	HasTotal  bool
	ErrorCode string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Recorder receives a FetchRecord after every fetch. Recording failures are
// logged and never fail the enumeration.
type Recorder interface {
	RecordFetch(ctx context.Context, rec FetchRecord) error
}

// Client holds everything a query handle needs to turn an AST into items:
// the service base URL, the dialect tag, and the transport and decoding
// collaborators.
//
// A Client is immutable after construction and safe for concurrent use.
type Client struct {
	baseURL  string
	dialect  string
	fetcher  Fetcher
	decoder  Decoder
	logger   *slog.Logger
	recorder Recorder
	strict   bool
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithDialect sets the dialect tag ("rest" or "odata"). Unknown tags fall
// back to REST.
func WithDialect(tag string) Option {
	return func(c *Client) {
		c.dialect = tag
	}
}

// WithFetcher sets the transport.
func WithFetcher(f Fetcher) Option {
	return func(c *Client) {
		c.fetcher = f
	}
}

// WithDecoder sets the body decoder.
func WithDecoder(d Decoder) Option {
	return func(c *Client) {
		c.decoder = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRecorder sets a fetch recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithStrict makes compile warnings fail the query instead of being logged.
func WithStrict(strict bool) Option {
	return func(c *Client) {
		c.strict = strict
	}
}

// WithClock sets the time source used for fetch records.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a Client for the service at baseURL.
//
// Defaults: REST dialect, an HTTPFetcher, JSONDecoder, slog.Default(), no
// recorder, non-strict.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialect: dialect.REST,
		decoder: JSONDecoder{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = NewHTTPFetcher(WithFetcherLogger(c.logger))
	}
	return c
}

// BaseURL returns the service base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Dialect returns the configured dialect tag.
func (c *Client) Dialect() string {
	return c.dialect
}

// Compiler returns the compiler selected by the dialect tag.
func (c *Client) Compiler() dialect.Compiler {
	return dialect.ForName(c.dialect)
}

// endpoint joins the base URL and a collection path.
func (c *Client) endpoint(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	path = strings.TrimLeft(path, "/")
	if c.baseURL == "" {
		return "/" + path
	}
	return c.baseURL + "/" + path
}

func (c *Client) record(ctx context.Context, rec FetchRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordFetch(ctx, rec); err != nil {
		c.logger.Warn("fetch record failed",
			"endpoint", rec.Endpoint,
			"error", err,
		)
	}
}
