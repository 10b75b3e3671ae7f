package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPFetcher_Headers(t *testing.T) {
	var accept, requestID, token string

	r := chi.NewRouter()
	r.Get("/items", func(w http.ResponseWriter, req *http.Request) {
		accept = req.Header.Get("Accept")
		requestID = req.Header.Get("X-Request-ID")
		token = req.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	f := NewHTTPFetcher(
		WithRequestIDs(NewFixedGenerator("req-1")),
		WithHeader("Authorization", "Bearer t"),
		WithFetcherLogger(quietLogger()),
	)

	body, err := f.Fetch(context.Background(), srv.URL+"/items")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, "application/json", accept)
	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, "Bearer t", token)
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/down", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	f := NewHTTPFetcher(WithFetcherLogger(quietLogger()))

	_, err := f.Fetch(context.Background(), srv.URL+"/down")
	require.Error(t, err)
	assert.True(t, IsTransportError(err))

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusServiceUnavailable, re.StatusCode)
	assert.Equal(t, srv.URL+"/down", re.URL)
}

func TestHTTPFetcher_NotFoundFromRouter(t *testing.T) {
	srv := httptest.NewServer(chi.NewRouter())
	defer srv.Close()

	_, err := NewHTTPFetcher(WithFetcherLogger(quietLogger())).Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestHTTPFetcher_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(chi.NewRouter())
	url := srv.URL + "/items"
	srv.Close()

	_, err := NewHTTPFetcher(WithFetcherLogger(quietLogger())).Fetch(context.Background(), url)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsDecodeError(err))
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/slow", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-req.Context().Done():
		}
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	f := NewHTTPFetcher(WithTimeout(50*time.Millisecond), WithFetcherLogger(quietLogger()))

	_, err := f.Fetch(context.Background(), srv.URL+"/slow")
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestHTTPFetcher_CustomClientKeepsItsTimeout(t *testing.T) {
	custom := &http.Client{Timeout: time.Minute}
	f := NewHTTPFetcher(WithHTTPClient(custom), WithTimeout(time.Second))

	assert.Same(t, custom, f.client)
	assert.Equal(t, time.Minute, custom.Timeout)
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
