package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/quake-explorer/internal/domain"
	"github.com/couchcryptid/quake-explorer/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Kahramanmaras")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
		assert.Equal(t, placeTypes, r.URL.Query().Get("types"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{36.93, 37.58},
					BBox:      []float64{36.2, 37.1, 38.1, 38.6},
					PlaceName: "Kahramanmaras, Turkey",
					Text:      "Kahramanmaras",
					Relevance: 0.95,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "Kahramanmaras")
	require.NoError(t, err)

	assert.Equal(t, 37.58, result.Lat)
	assert.Equal(t, 36.93, result.Lon)
	assert.Equal(t, "Kahramanmaras, Turkey", result.FormattedAddress)
	assert.Equal(t, "Kahramanmaras", result.PlaceName)
	assert.Equal(t, 0.95, result.Confidence)
	require.NotNil(t, result.Bounds)
	assert.Equal(t, domain.BoundingBox{MinLat: 37.1, MinLon: 36.2, MaxLat: 38.6, MaxLon: 38.1}, *result.Bounds)

	region, ok := domain.RegionFromGeocoding(result)
	require.True(t, ok)
	assert.True(t, domain.Matches(domain.Point{Lat: 37.2256, Lon: 37.0143}, region))
}

func TestClient_ForwardGeocode_NoBBox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := response{Features: []feature{{Center: []float64{1, 2}, PlaceName: "Somewhere", Text: "Somewhere"}}}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Somewhere")
	require.NoError(t, err)
	assert.Nil(t, result.Bounds)

	_, ok := domain.RegionFromGeocoding(result)
	assert.False(t, ok)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Empty(t, result.FormattedAddress)
}

func TestClient_ForwardGeocode_EmptyQuery(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ForwardGeocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, domain.GeocodingResult{}, result)
	assert.False(t, called)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized - Invalid Token"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Chile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{invalid`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Chile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).ForwardGeocode(ctx, "Chile")
	require.Error(t, err)
}
