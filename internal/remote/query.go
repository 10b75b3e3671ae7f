package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/roach88/remoteq/internal/dialect"
	"github.com/roach88/remoteq/internal/include"
	"github.com/roach88/remoteq/internal/queryir"
)

// Query is a deferred query over the collection at one endpoint.
//
// Builder methods return a new Query and perform no I/O. Nothing is
// fetched until All, List or Page is called; each of those compiles the
// accumulated AST, performs exactly one fetch and decodes the response.
// Results are not cached: enumerating twice fetches twice.
//
// A Query is a value. Concurrent enumeration of the same finished Query is
// safe; building on it from several goroutines produces independent
// queries.
type Query[T any] struct {
	client   *Client
	path     string
	ast      queryir.Query
	includes include.Builder
}

// From starts a query against path, resolved relative to the client's base
// URL.
func From[T any](c *Client, path string) Query[T] {
	return Query[T]{client: c, path: path}
}

// FromAST starts a query from an already built AST and include chains,
// such as one loaded from a definition file.
func FromAST[T any](c *Client, path string, ast queryir.Query, includes include.Builder) Query[T] {
	return Query[T]{client: c, path: path, ast: ast, includes: includes}
}

// Where ANDs p into the filter.
func (q Query[T]) Where(p queryir.Predicate) Query[T] {
	q.ast = q.ast.Where(p)
	return q
}

// OrderBy replaces the ordering with field. Passing a direction marks it
// explicit, which the OData dialect renders as a suffix.
func (q Query[T]) OrderBy(field string, dir ...queryir.Direction) Query[T] {
	q.ast = q.ast.OrderBy(queryir.Field(field), dir...)
	return q
}

// ThenBy appends a secondary ordering key.
func (q Query[T]) ThenBy(field string, dir ...queryir.Direction) Query[T] {
	q.ast = q.ast.ThenBy(queryir.Field(field), dir...)
	return q
}

// Skip sets the number of leading items to skip.
func (q Query[T]) Skip(n int) Query[T] {
	q.ast = q.ast.Skip(n)
	return q
}

// Take limits the number of items returned.
func (q Query[T]) Take(n int) Query[T] {
	q.ast = q.ast.Take(n)
	return q
}

// Include starts a related-data chain.
func (q Query[T]) Include(field string) Query[T] {
	q.includes = q.includes.Include(field)
	return q
}

// ThenInclude extends the most recently started include chain.
func (q Query[T]) ThenInclude(field string) Query[T] {
	q.includes = q.includes.ThenInclude(field)
	return q
}

// AST returns the accumulated query.
func (q Query[T]) AST() queryir.Query {
	return q.ast
}

// Includes returns the accumulated include chains.
func (q Query[T]) Includes() include.Builder {
	return q.includes
}

// Endpoint returns the resolved collection URL without a query string.
func (q Query[T]) Endpoint() string {
	return q.client.endpoint(q.path)
}

// URL compiles the query and returns the request URL without fetching.
func (q Query[T]) URL() (string, error) {
	url, _, err := q.compile()
	return url, err
}

// compile renders the AST with the client's dialect and appends the
// include parameter.
func (q Query[T]) compile() (string, *dialect.Result, error) {
	compiler := q.client.Compiler()
	res, err := compiler.Compile(q.ast)
	if err != nil {
		return "", nil, fmt.Errorf("compile %s: %w", q.path, err)
	}

	endpoint := q.Endpoint()
	for _, w := range res.Warnings {
		q.client.logger.Warn("query approximated",
			"dialect", compiler.Dialect(),
			"endpoint", endpoint,
			"warning", w,
		)
	}
	if q.client.strict {
		if err := res.StrictErr(); err != nil {
			return "", nil, fmt.Errorf("compile %s: %w", q.path, err)
		}
	}

	includeParam, err := q.includes.Param()
	if err != nil {
		return "", nil, fmt.Errorf("compile %s: %w", q.path, err)
	}

	parts := make([]string, 0, 2)
	if qs := res.Encode(); qs != "" {
		parts = append(parts, qs)
	}
	if includeParam != "" {
		parts = append(parts, includeParam)
	}
	if len(parts) == 0 {
		return endpoint, res, nil
	}

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + strings.Join(parts, "&"), res, nil
}

// fetch performs the single fetch and decode of one enumeration.
func (q Query[T]) fetch(ctx context.Context) (Envelope, error) {
	url, res, err := q.compile()
	if err != nil {
		return Envelope{}, err
	}
	if err := ctx.Err(); err != nil {
		return Envelope{}, NewTransportError(url, err)
	}

	c := q.client
	rec := FetchRecord{
		Endpoint:  q.path,
		Dialect:   res.Dialect,
		URL:       url,
		StartedAt: c.now(),
	}

	env, err := q.fetchAndDecode(ctx, url)
	rec.Duration = c.now().Sub(rec.StartedAt)
	if err != nil {
		rec.ErrorCode = string(CodeOf(err))
		rec.Error = err.Error()
		c.record(ctx, rec)
		c.logger.Warn("fetch failed",
			"endpoint", q.path,
			"dialect", res.Dialect,
			"error", err,
		)
		return Envelope{}, err
	}

	rec.Items = len(env.Items)
	rec.Total = env.Total
	rec.HasTotal = env.HasTotal
	c.record(ctx, rec)

	c.logger.Info("fetch complete",
		"endpoint", q.path,
		"dialect", res.Dialect,
		"items", len(env.Items),
		"duration", rec.Duration,
	)
	return env, nil
}

func (q Query[T]) fetchAndDecode(ctx context.Context, url string) (Envelope, error) {
	body, err := q.client.fetcher.Fetch(ctx, url)
	if err != nil {
		if CodeOf(err) == "" {
			err = NewTransportError(url, err)
		}
		return Envelope{}, err
	}

	env, err := q.client.decoder.Decode(body)
	if err != nil {
		if re, ok := err.(*Error); ok && re.URL == "" {
			re.URL = url
		}
		if CodeOf(err) == "" {
			err = &Error{Code: ErrCodeDecodeFailed, Message: "decode response", URL: url, Err: err}
		}
		return Envelope{}, err
	}
	return env, nil
}

// All fetches once and yields each decoded item. A fetch or decode
// failure is yielded as the sole (or final) error and ends the sequence.
func (q Query[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		env, err := q.fetch(ctx)
		if err != nil {
			yield(zero, err)
			return
		}
		for i, raw := range env.Items {
			item, err := decodeItem[T](raw, i)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// List fetches once and returns every decoded item.
func (q Query[T]) List(ctx context.Context) ([]T, error) {
	p, err := q.Page(ctx)
	if err != nil {
		return nil, err
	}
	return p.Items, nil
}

// Page is one fetched page of items plus the server-reported total, when
// the response carried one.
type Page[T any] struct {
	Items    []T
	Total    int64
	HasTotal bool
}

// Page fetches once and returns the decoded items with the total count.
func (q Query[T]) Page(ctx context.Context) (Page[T], error) {
	env, err := q.fetch(ctx)
	if err != nil {
		return Page[T]{}, err
	}
	items := make([]T, 0, len(env.Items))
	for i, raw := range env.Items {
		item, err := decodeItem[T](raw, i)
		if err != nil {
			return Page[T]{}, err
		}
		items = append(items, item)
	}
	return Page[T]{Items: items, Total: env.Total, HasTotal: env.HasTotal}, nil
}

func decodeItem[T any](raw json.RawMessage, index int) (T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, NewDecodeError(fmt.Sprintf("item %d", index), err)
	}
	return item, nil
}
