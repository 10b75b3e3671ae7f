package remote

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remoteq/internal/dialect"
	"github.com/roach88/remoteq/internal/include"
	"github.com/roach88/remoteq/internal/ir"
	"github.com/roach88/remoteq/internal/queryir"
	"github.com/roach88/remoteq/internal/testutil"
)

type workout struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// fakeService serves a small workout collection in several envelope shapes.
type fakeService struct {
	hits      atomic.Int64
	mu        sync.Mutex
	lastQuery string
}

func (s *fakeService) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.hits.Add(1)
			s.mu.Lock()
			s.lastQuery = req.URL.RawQuery
			s.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/workouts", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":1,"name":"Push A"},{"id":2,"name":"Push B"},{"id":3,"name":"Pull A"}],"total":42}`))
	})
	r.Get("/bare", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":7,"name":"Legs"}]`))
	})
	r.Get("/malformed", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	})
	r.Get("/badtype", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"seven"}]`))
	})
	r.Get("/down", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	return r
}

func (s *fakeService) query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeService) {
	t.Helper()
	svc := &fakeService{}
	srv := httptest.NewServer(svc.router())
	t.Cleanup(srv.Close)

	base := []Option{
		WithLogger(quietLogger()),
		WithFetcher(NewHTTPFetcher(WithFetcherLogger(quietLogger()))),
	}
	return NewClient(srv.URL, append(base, opts...)...), svc
}

type memRecorder struct {
	mu      sync.Mutex
	records []FetchRecord
	err     error
}

func (m *memRecorder) RecordFetch(_ context.Context, rec FetchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func sampleQuery(c *Client) Query[workout] {
	return From[workout](c, "/weekplans").
		Where(queryir.Contains(queryir.Field("name"), "push")).
		OrderBy("name", queryir.Descending).
		Skip(20).
		Take(10).
		Include("weekPlans").ThenInclude("weekPlanSets")
}

func TestQuery_URL(t *testing.T) {
	testCases := []struct {
		dialect string
		want    string
	}{
		{
			dialect: "rest",
			want:    "https://api.example.com/weekplans?search=push&sort=name_desc&pageIndex=2&pageSize=10&include=weekplans.weekplansets",
		},
		{
			dialect: "odata",
			want:    "https://api.example.com/weekplans?$filter=contains(name,%20'push')&$orderby=name%20desc&$skip=20&$top=10&include=weekplans.weekplansets",
		},
		{
			dialect: "unknown",
			want:    "https://api.example.com/weekplans?search=push&sort=name_desc&pageIndex=2&pageSize=10&include=weekplans.weekplansets",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.dialect, func(t *testing.T) {
			c := NewClient("https://api.example.com/", WithDialect(tc.dialect), WithLogger(quietLogger()))
			got, err := sampleQuery(c).URL()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQuery_URLWithoutParameters(t *testing.T) {
	c := NewClient("https://api.example.com", WithLogger(quietLogger()))

	got, err := From[workout](c, "workouts").URL()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/workouts", got)
}

func TestQuery_EndpointWithExistingQueryString(t *testing.T) {
	c := NewClient("https://api.example.com", WithLogger(quietLogger()))

	got, err := From[workout](c, "workouts?tenant=a").Take(5).URL()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/workouts?tenant=a&pageIndex=0&pageSize=5", got)
}

func TestQuery_FromAST(t *testing.T) {
	c := NewClient("https://api.example.com", WithLogger(quietLogger()))
	ast := queryir.New().Where(queryir.Eq(queryir.Field("level"), ir.Int(2))).Take(5)
	includes := include.New().Include("exercise")

	got, err := FromAST[workout](c, "workouts", ast, includes).Skip(5).URL()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/workouts?level=2&pageIndex=1&pageSize=5&include=exercise", got)
}

func TestQuery_BuilderIsImmutable(t *testing.T) {
	c := NewClient("https://api.example.com", WithLogger(quietLogger()))
	base := From[workout](c, "workouts").Where(queryir.Eq(queryir.Field("level"), ir.Int(1)))

	narrowed := base.Where(queryir.Eq(queryir.Field("muscle"), ir.String("chest"))).Include("exercise")

	baseURL, err := base.URL()
	require.NoError(t, err)
	narrowedURL, err := narrowed.URL()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/workouts?level=1", baseURL)
	assert.Equal(t, "https://api.example.com/workouts?level=1&muscle=chest&include=exercise", narrowedURL)
	assert.True(t, base.Includes().IsEmpty())
	assert.Len(t, narrowed.AST().Predicates(), 2)
}

func TestQuery_NoFetchUntilEnumerated(t *testing.T) {
	c, svc := newTestClient(t)

	q := From[workout](c, "workouts").Where(queryir.Contains(queryir.Field("name"), "push")).Take(3)
	_, err := q.URL()
	require.NoError(t, err)

	assert.Equal(t, int64(0), svc.hits.Load())

	_, err = q.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), svc.hits.Load())
}

func TestQuery_EachEnumerationFetches(t *testing.T) {
	c, svc := newTestClient(t)
	q := From[workout](c, "workouts")

	for i := 0; i < 3; i++ {
		_, err := q.List(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), svc.hits.Load(), "results are not cached")
}

func TestQuery_List(t *testing.T) {
	c, svc := newTestClient(t, WithDialect("odata"))

	items, err := From[workout](c, "workouts").
		Where(queryir.StartsWith(queryir.Field("name"), "Push")).
		Take(3).
		List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []workout{{1, "Push A"}, {2, "Push B"}, {3, "Pull A"}}, items)
	assert.Equal(t, "$filter=startswith(name,%20'Push')&$top=3", svc.query())
}

func TestQuery_Page(t *testing.T) {
	c, _ := newTestClient(t)

	page, err := From[workout](c, "workouts").Page(context.Background())
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.True(t, page.HasTotal)
	assert.Equal(t, int64(42), page.Total)

	page, err = From[workout](c, "bare").Page(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []workout{{7, "Legs"}}, page.Items)
	assert.False(t, page.HasTotal)
}

func TestQuery_All(t *testing.T) {
	c, _ := newTestClient(t)

	var names []string
	for item, err := range From[workout](c, "workouts").All(context.Background()) {
		require.NoError(t, err)
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"Push A", "Push B", "Pull A"}, names)
}

func TestQuery_AllStopsEarly(t *testing.T) {
	c, svc := newTestClient(t)

	count := 0
	for _, err := range From[workout](c, "workouts").All(context.Background()) {
		require.NoError(t, err)
		count++
		break
	}

	assert.Equal(t, 1, count)
	assert.Equal(t, int64(1), svc.hits.Load())
}

func TestQuery_TransportVersusDecodeFailure(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := From[workout](c, "down").List(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsDecodeError(err))

	_, err = From[workout](c, "malformed").List(context.Background())
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
	assert.False(t, IsTransportError(err))

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.URL, "/malformed")

	_, err = From[workout](c, "badtype").List(context.Background())
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestQuery_AllYieldsFailure(t *testing.T) {
	c, _ := newTestClient(t)

	var errs []error
	for _, err := range From[workout](c, "malformed").All(context.Background()) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, IsDecodeError(errs[0]))
}

func TestQuery_CancelledContext(t *testing.T) {
	c, svc := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := From[workout](c, "workouts").List(ctx)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), svc.hits.Load())
}

func TestQuery_CompileErrorBeforeFetch(t *testing.T) {
	c, svc := newTestClient(t)

	_, err := From[workout](c, "workouts").
		Where(queryir.CompareFields(queryir.Field("updatedAt"), queryir.OpGt, queryir.Field("createdAt"))).
		List(context.Background())

	require.Error(t, err)
	assert.True(t, dialect.IsUnsupportedShape(err))
	assert.Equal(t, int64(0), svc.hits.Load())
}

func TestQuery_IncludeErrorBeforeFetch(t *testing.T) {
	c, svc := newTestClient(t)

	_, err := From[workout](c, "workouts").ThenInclude("muscles").List(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, include.ErrNoChain)
	assert.Equal(t, int64(0), svc.hits.Load())
}

func TestQuery_WarningsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c, _ := newTestClient(t, WithLogger(logger))

	_, err := From[workout](c, "workouts").
		Where(queryir.Or(
			queryir.Eq(queryir.Field("muscle"), ir.String("chest")),
			queryir.Eq(queryir.Field("muscle"), ir.String("back")),
		)).
		List(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "query approximated")
	assert.Contains(t, out, "dialect=rest")
}

func TestQuery_StrictRejectsApproximation(t *testing.T) {
	c, svc := newTestClient(t, WithStrict(true))

	q := From[workout](c, "workouts").Where(queryir.Or(
		queryir.Eq(queryir.Field("muscle"), ir.String("chest")),
		queryir.Eq(queryir.Field("muscle"), ir.String("back")),
	))

	_, err := q.List(context.Background())
	require.Error(t, err)
	assert.True(t, dialect.IsUnsupportedShape(err))
	assert.Equal(t, int64(0), svc.hits.Load())

	// The same query is exact in OData, so strict mode accepts it.
	odata, _ := newTestClient(t, WithStrict(true), WithDialect("odata"))
	_, err = From[workout](odata, "workouts").Where(q.AST().Filter).List(context.Background())
	assert.NoError(t, err)
}

func TestQuery_Recorder(t *testing.T) {
	rec := &memRecorder{}
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewStepClock(start, 25*time.Millisecond)
	c, _ := newTestClient(t, WithRecorder(rec), WithDialect("odata"), WithClock(clock.Now))

	_, err := From[workout](c, "workouts").Take(3).List(context.Background())
	require.NoError(t, err)
	_, err = From[workout](c, "down").List(context.Background())
	require.Error(t, err)

	require.Len(t, rec.records, 2)

	ok := rec.records[0]
	assert.Equal(t, "workouts", ok.Endpoint)
	assert.Equal(t, "odata", ok.Dialect)
	assert.Contains(t, ok.URL, "/workouts?$top=3")
	assert.Equal(t, 3, ok.Items)
	assert.Equal(t, int64(42), ok.Total)
	assert.True(t, ok.HasTotal)
	assert.Empty(t, ok.ErrorCode)
	assert.Equal(t, start, ok.StartedAt)
	assert.Equal(t, 25*time.Millisecond, ok.Duration)

	failed := rec.records[1]
	assert.Equal(t, "TRANSPORT_FAILED", failed.ErrorCode)
	assert.Contains(t, failed.Error, "502")
}

func TestQuery_RecorderFailureDoesNotFailFetch(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	c, _ := newTestClient(t, WithRecorder(rec))

	items, err := From[workout](c, "workouts").List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestQuery_CustomFetcher(t *testing.T) {
	var gotURL string
	f := FetcherFunc(func(_ context.Context, url string) ([]byte, error) {
		gotURL = url
		return []byte(`{"value":[{"id":1,"name":"x"}],"@odata.count":1}`), nil
	})
	c := NewClient("http://svc", WithFetcher(f), WithDialect("odata"), WithLogger(quietLogger()))

	page, err := From[workout](c, "items").OrderBy("name").Page(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://svc/items?$orderby=name", gotURL)
	assert.Equal(t, int64(1), page.Total)
}

func TestQuery_FetcherPlainErrorIsTransport(t *testing.T) {
	f := FetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("socket closed")
	})
	c := NewClient("http://svc", WithFetcher(f), WithLogger(quietLogger()))

	_, err := From[workout](c, "items").List(context.Background())
	assert.True(t, IsTransportError(err))
}

func TestQuery_ConcurrentEnumeration(t *testing.T) {
	c, svc := newTestClient(t)
	q := From[workout](c, "workouts").OrderBy("name").Take(3)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := q.List(context.Background())
			assert.NoError(t, err)
			assert.Len(t, items, 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8), svc.hits.Load())
}
