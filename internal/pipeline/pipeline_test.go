package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-explorer/internal/domain"
	"github.com/couchcryptid/quake-explorer/internal/observability"
	"github.com/couchcryptid/quake-explorer/internal/pipeline"
)

// --- mocks ---

type mockFetcher struct {
	features []domain.RawFeature
	err      error
	calls    int
	lastQ    domain.Query
}

func (m *mockFetcher) FetchEvents(_ context.Context, q domain.Query) ([]domain.RawFeature, error) {
	m.calls++
	m.lastQ = q
	return m.features, m.err
}

type mockPublisher struct {
	queryID string
	events  []domain.EventRecord
	err     error
}

func (m *mockPublisher) Publish(_ context.Context, queryID string, events []domain.EventRecord) error {
	m.queryID = queryID
	m.events = events
	return m.err
}

type fixedAvailability bool

func (f fixedAvailability) Available() bool { return bool(f) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func ptr[T any](v T) *T { return &v }

func feature(id string, mag *float64, depth *float64, at time.Time, lat, lon float64) domain.RawFeature {
	return domain.RawFeature{
		ID: id,
		Properties: domain.RawProperties{
			Mag:   mag,
			Time:  ptr(at.UnixMilli()),
			Place: ptr("test place " + id),
			URL:   ptr("https://earthquake.usgs.gov/earthquakes/eventpage/" + id),
		},
		Geometry: &domain.RawGeometry{
			Type:        "Point",
			Coordinates: []*float64{ptr(lon), ptr(lat), depth},
		},
	}
}

func turkeyFeatures() []domain.RawFeature {
	return []domain.RawFeature{
		feature("a", ptr(6.1), ptr(10.0), time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC), 38, 37),
		feature("b", ptr(7.5), ptr(30.0), time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC), 39, 36),
	}
}

func turkeyCriteria(region domain.Polygon) domain.Criteria {
	return domain.Criteria{
		Start:        time.Date(2023, 2, 2, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC),
		MinMagnitude: domain.Known(6),
		MaxMagnitude: domain.Known(8),
		Regions:      domain.Region{region},
	}
}

// --- tests ---

func TestExplorer_Run_HappyPath(t *testing.T) {
	fetcher := &mockFetcher{features: turkeyFeatures()}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics())

	res, err := e.Run(context.Background(), turkeyCriteria(domain.Rectangle(36, 26, 42, 45)))
	require.NoError(t, err)

	ids := make([]string, len(res.Events))
	for i, ev := range res.Events {
		ids[i] = ev.ID
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Errorf("matched ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, res.Stats.Count)
	mean, ok := res.Stats.MeanMagnitude.Get()
	require.True(t, ok)
	assert.InDelta(t, 6.8, mean, 1e-9)
	require.NotNil(t, res.Stats.MaxMagnitudeEvent)
	assert.Equal(t, "b", res.Stats.MaxMagnitudeEvent.ID)
	assert.Equal(t, 2, res.Fetched)
	assert.Zero(t, res.Dropped)
	assert.Empty(t, res.Warnings)
	assert.NotEmpty(t, res.QueryID)

	require.NotNil(t, fetcher.lastQ.Bounds)
	assert.Equal(t, domain.BoundingBox{MinLat: 36, MinLon: 26, MaxLat: 42, MaxLon: 45}, *fetcher.lastQ.Bounds)
	assert.Equal(t, 20000, fetcher.lastQ.Limit)
}

func TestExplorer_Run_RegionExcludesAll(t *testing.T) {
	fetcher := &mockFetcher{features: turkeyFeatures()}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics())

	res, err := e.Run(context.Background(), turkeyCriteria(domain.Rectangle(0, 0, 10, 10)))
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Equal(t, 0, res.Stats.Count)
	assert.Nil(t, res.Stats.MaxMagnitudeEvent)
}

func TestExplorer_Run_InvalidCriteriaSkipsFetch(t *testing.T) {
	fetcher := &mockFetcher{features: turkeyFeatures()}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics())

	c := turkeyCriteria(domain.Polygon{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}})
	_, err := e.Run(context.Background(), c)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "regions[0]", verr.Problems[0].Field)
	assert.Zero(t, fetcher.calls)
}

func TestExplorer_Run_FetchErrorSurfaced(t *testing.T) {
	fetcher := &mockFetcher{err: &domain.FetchError{Op: "usgs query", Retryable: true, Err: errors.New("connection reset")}}
	pub := &mockPublisher{}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics(), pipeline.WithPublisher(pub))

	res, err := e.Run(context.Background(), turkeyCriteria(domain.Rectangle(36, 26, 42, 45)))
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Nil(t, res.Events)
	assert.Nil(t, pub.events)
}

func TestExplorer_Run_EmptyFetchIsSuccess(t *testing.T) {
	fetcher := &mockFetcher{features: []domain.RawFeature{}}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics())

	res, err := e.Run(context.Background(), domain.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Equal(t, 0, res.Stats.Count)
	assert.Empty(t, res.Warnings)
}

func TestExplorer_Run_DropsInvalidRecords(t *testing.T) {
	bad := feature("bad", ptr(6.5), nil, time.Date(2023, 2, 12, 0, 0, 0, 0, time.UTC), 95, 37)
	noGeom := domain.RawFeature{ID: "nogeom", Properties: domain.RawProperties{Time: ptr(int64(1675987200000))}}
	fetcher := &mockFetcher{features: append(turkeyFeatures(), bad, noGeom)}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics())

	res, err := e.Run(context.Background(), domain.Criteria{})
	require.NoError(t, err)
	assert.Len(t, res.Events, 2)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 2, res.Dropped)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "2 event(s) dropped")
}

func TestExplorer_Run_LimitWarning(t *testing.T) {
	fetcher := &mockFetcher{features: turkeyFeatures()}
	e := pipeline.New(fetcher, 2, discardLogger(), newTestMetrics())

	res, err := e.Run(context.Background(), domain.Criteria{})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "2 event limit")
}

func TestExplorer_Run_UnknownMagnitudeWarning(t *testing.T) {
	fetcher := &mockFetcher{features: []domain.RawFeature{
		feature("u", nil, ptr(5.0), time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC), 38, 37),
	}}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics())

	res, err := e.Run(context.Background(), domain.Criteria{})
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)
	assert.Contains(t, res.Warnings, "no matched event has a reported magnitude")
}

func TestExplorer_Run_Publishes(t *testing.T) {
	fetcher := &mockFetcher{features: turkeyFeatures()}
	pub := &mockPublisher{}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics(), pipeline.WithPublisher(pub))

	res, err := e.Run(context.Background(), domain.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, res.QueryID, pub.queryID)
	assert.Equal(t, res.Events, pub.events)
}

func TestExplorer_Run_PublishFailureDoesNotFailQuery(t *testing.T) {
	fetcher := &mockFetcher{features: turkeyFeatures()}
	pub := &mockPublisher{err: errors.New("broker unavailable")}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics(), pipeline.WithPublisher(pub))

	res, err := e.Run(context.Background(), domain.Criteria{})
	require.NoError(t, err)
	assert.Len(t, res.Events, 2)
	assert.Contains(t, res.Warnings, "matched events could not be published")
}

func TestExplorer_Run_NoPublishWhenNothingMatched(t *testing.T) {
	fetcher := &mockFetcher{features: turkeyFeatures()}
	pub := &mockPublisher{}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics(), pipeline.WithPublisher(pub))

	_, err := e.Run(context.Background(), turkeyCriteria(domain.Rectangle(0, 0, 10, 10)))
	require.NoError(t, err)
	assert.Empty(t, pub.queryID)
}

func TestExplorer_Run_IsolatedResults(t *testing.T) {
	fetcher := &mockFetcher{features: turkeyFeatures()}
	e := pipeline.New(fetcher, 20000, discardLogger(), newTestMetrics())

	first, err := e.Run(context.Background(), domain.Criteria{})
	require.NoError(t, err)
	second, err := e.Run(context.Background(), turkeyCriteria(domain.Rectangle(38.5, 35, 40, 37)))
	require.NoError(t, err)

	assert.Len(t, first.Events, 2)
	require.Len(t, second.Events, 1)
	assert.Equal(t, "b", second.Events[0].ID)
	assert.NotEqual(t, first.QueryID, second.QueryID)
}

func TestExplorer_CheckReadiness(t *testing.T) {
	fetcher := &mockFetcher{}

	e := pipeline.New(fetcher, 1, discardLogger(), newTestMetrics())
	require.NoError(t, e.CheckReadiness(context.Background()))

	e = pipeline.New(fetcher, 1, discardLogger(), newTestMetrics(), pipeline.WithAvailability(fixedAvailability(true)))
	require.NoError(t, e.CheckReadiness(context.Background()))

	e = pipeline.New(fetcher, 1, discardLogger(), newTestMetrics(), pipeline.WithAvailability(fixedAvailability(false)))
	err := e.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
}
