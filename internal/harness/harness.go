package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/remoteq/internal/dialect"
	"github.com/roach88/remoteq/internal/include"
	"github.com/roach88/remoteq/internal/queryir"
	"github.com/roach88/remoteq/internal/remote"
	"github.com/roach88/remoteq/internal/store"
	"github.com/roach88/remoteq/internal/testutil"
)

// Every scenario's clock starts at clockStart and advances clockStep per
// reading, so recorded fetch times and durations are reproducible.
var (
	clockStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clockStep  = time.Millisecond
)

// Harness holds the collaborators of one scenario run.
type Harness struct {
	store  *store.Store
	clock  *testutil.StepClock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs with a fresh in-memory fetch log for isolation.
//
// Execution flow:
// 1. Load the query definition and build the AST
// 2. Compile it for every dialect named under expect
// 3. Render the include chains
// 4. Enumerate the query against the canned response, if any
// 5. Return result with pass/fail, trace, and errors
//
// The returned error reports harness failures (unreadable query file,
// store setup); scenario mismatches are recorded on the Result.
func Run(scenario *Scenario) (*Result, error) {
	def, err := scenario.definition()
	if err != nil {
		return nil, fmt.Errorf("failed to load query: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewStepClock(clockStart, clockStep),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	result := NewResult()

	ast, inc, buildErr := def.Build()

	for _, tag := range []string{dialect.REST, dialect.OData} {
		want := scenario.Expect.forDialect(tag)
		if want == nil {
			continue
		}
		ev := h.compile(tag, ast, buildErr, scenario.Strict)
		result.Trace = append(result.Trace, ev)
		checkCompile(result, tag, want, ev)
	}

	if buildErr == nil {
		rendered, err := inc.Render()
		if err != nil {
			result.AddError(fmt.Sprintf("include: %v", err))
		}
		result.Include = rendered
	}
	if scenario.Expect.Include != nil {
		checkInclude(result, *scenario.Expect.Include, buildErr)
	}

	if step := scenario.Fetch; step != nil {
		if buildErr != nil {
			result.AddError(fmt.Sprintf("fetch: query definition is invalid: %v", buildErr))
			return result, nil
		}
		tag := step.Dialect
		if tag == "" {
			tag = def.DialectOr(dialect.REST)
		}
		out, err := h.fetch(ctx, step, tag, def.Endpoint, ast, inc, scenario.Strict)
		if err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, out.event)
		checkFetch(result, step.Expect, out.page, out.err)
	}

	return result, nil
}

// forDialect returns the expectation for a dialect tag.
func (e Expect) forDialect(tag string) *DialectExpect {
	switch tag {
	case dialect.REST:
		return e.REST
	case dialect.OData:
		return e.OData
	default:
		return nil
	}
}

// compile renders ast for one dialect. A build failure is reported as the
// compile error of every dialect.
func (h *Harness) compile(tag string, ast queryir.Query, buildErr error, strict bool) TraceEvent {
	ev := TraceEvent{Type: EventCompile, Dialect: tag}
	if buildErr != nil {
		ev.Error = buildErr.Error()
		return ev
	}

	res, err := dialect.ForName(tag).Compile(ast)
	if err == nil && strict {
		err = res.StrictErr()
	}
	if err != nil {
		ev.Error = err.Error()
		return ev
	}
	ev.Query = res.Encode()
	ev.Warnings = res.Warnings
	return ev
}

// fetchOutcome is what one enumeration produced.
type fetchOutcome struct {
	page  remote.Page[map[string]any]
	err   error
	event TraceEvent
}

// fetch enumerates the query against an httptest server answering with the
// step's canned response, recording into the harness store.
func (h *Harness) fetch(
	ctx context.Context,
	step *FetchStep,
	tag, endpoint string,
	ast queryir.Query,
	inc include.Builder,
	strict bool,
) (fetchOutcome, error) {
	status := step.Status
	if status == 0 {
		status = http.StatusOK
	}

	r := chi.NewRouter()
	r.Get("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, step.Body)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	fetcher := remote.NewHTTPFetcher(
		remote.WithRequestIDs(remote.NewFixedGenerator("harness-request-1")),
		remote.WithFetcherLogger(h.logger),
	)
	client := remote.NewClient(srv.URL,
		remote.WithDialect(tag),
		remote.WithFetcher(fetcher),
		remote.WithRecorder(h.store),
		remote.WithStrict(strict),
		remote.WithLogger(h.logger),
		remote.WithClock(h.clock.Now),
	)

	out := fetchOutcome{event: TraceEvent{Type: EventFetch, Dialect: tag}}
	out.page, out.err = remote.FromAST[map[string]any](client, endpoint, ast, inc).Page(ctx)

	fetches, err := h.store.ListFetches(ctx, store.ListOptions{})
	if err != nil {
		return out, fmt.Errorf("failed to read fetch log: %w", err)
	}
	if len(fetches) == 0 {
		// Compile failures never reach the transport.
		if out.err != nil {
			out.event.Error = out.err.Error()
		}
		return out, nil
	}

	rec := fetches[len(fetches)-1]
	out.event.Seq = rec.Seq
	if _, qs, ok := strings.Cut(rec.URL, "?"); ok {
		out.event.Query = qs
	}
	if rec.Failed() {
		out.event.Error = rec.ErrorCode
		return out, nil
	}
	items := rec.Items
	out.event.Items = &items
	if rec.HasTotal {
		total := rec.Total
		out.event.Total = &total
	}
	return out, nil
}
