package httpadapter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-explorer/internal/adapter/resilience"
	"github.com/couchcryptid/quake-explorer/internal/adapter/usgs"
	"github.com/couchcryptid/quake-explorer/internal/observability"
	"github.com/couchcryptid/quake-explorer/internal/pipeline"
	"github.com/couchcryptid/quake-explorer/internal/regions"
)

func TestServer_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(&fakeQuerier{}, nil, 0)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/metrics", "").Code)
}

func TestServer_NotReady(t *testing.T) {
	api := NewAPI(&fakeQuerier{}, regions.Builtin(), nil, Defaults{Lookback: time.Hour}, discardLogger())
	srv := NewServer(ServerConfig{Addr: ":0"}, api, fakeReadiness{err: errors.New("usgs circuit breaker is open")}, discardLogger())

	rec := do(t, srv, http.MethodGet, "/readyz", "")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestServer_RequestIDPropagated(t *testing.T) {
	srv := newTestServer(&fakeQuerier{}, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	req.Header.Set(headerRequestID, "req-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(headerRequestID))
}

func TestServer_RateLimit(t *testing.T) {
	srv := newTestServer(&fakeQuerier{}, nil, 2)

	for range 2 {
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/v1/regions", "").Code)
	}
	rec := do(t, srv, http.MethodGet, "/api/v1/regions", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Health checks are outside the limited group.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)
}

func TestServer_RecoversPanics(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := newTestServer(&fakeQuerier{}, nil, 0)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/v1/nope", "").Code)
}

func TestServer_WriteTimeout(t *testing.T) {
	api := NewAPI(&fakeQuerier{}, regions.Builtin(), nil, Defaults{Lookback: time.Hour}, discardLogger())

	srv := NewServer(ServerConfig{Addr: ":0"}, api, fakeReadiness{}, discardLogger())
	assert.Equal(t, 90*time.Second, srv.httpServer.WriteTimeout)

	srv = NewServer(ServerConfig{Addr: ":0", WriteTimeout: 5 * time.Second}, api, fakeReadiness{}, discardLogger())
	assert.Equal(t, 5*time.Second, srv.httpServer.WriteTimeout)
}

// A stalled upstream must end in a 503 with Retry-After before the server
// write timeout drops the connection.
func TestServer_StalledUpstreamReturnsServiceUnavailable(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer upstream.Close()
	defer close(release)

	metrics := observability.NewMetricsForTesting()
	cfg := resilience.DefaultClientConfig("usgs")
	cfg.Timeout = 10 * time.Second
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = time.Millisecond
	client := resilience.NewClient(cfg, discardLogger())
	fetcher := usgs.NewClient(client, usgs.Options{BaseURL: upstream.URL, Deadline: 100 * time.Millisecond}, metrics, discardLogger())
	explorer := pipeline.New(fetcher, 20000, discardLogger(), metrics)

	api := NewAPI(explorer, regions.Builtin(), nil, Defaults{Lookback: 48 * time.Hour, MinMagnitude: 6, MaxMagnitude: 9}, discardLogger())
	srv := NewServer(ServerConfig{Addr: ":0", WriteTimeout: 2 * time.Second}, api, explorer, discardLogger())

	ts := httptest.NewUnstartedServer(srv.httpServer.Handler)
	ts.Config = srv.httpServer
	ts.Start()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/earthquakes")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "30", resp.Header.Get("Retry-After"))
}
