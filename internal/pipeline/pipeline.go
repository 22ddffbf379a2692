// Package pipeline runs one explorer query: fetch, normalize, filter,
// summarize and optionally publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/quake-explorer/internal/domain"
	"github.com/couchcryptid/quake-explorer/internal/observability"
)

// defaultPublishTimeout bounds the optional publish step.
const defaultPublishTimeout = 10 * time.Second

// EventPublisher writes the events matched by one query to a downstream sink.
type EventPublisher interface {
	Publish(ctx context.Context, queryID string, events []domain.EventRecord) error
}

// AvailabilityChecker reports whether the upstream event source accepts requests.
type AvailabilityChecker interface {
	Available() bool
}

// Result is the outcome of one query. Stats always describes Events.
type Result struct {
	QueryID  string
	Criteria domain.Criteria
	Events   []domain.EventRecord
	Stats    domain.Statistics
	Fetched  int
	Dropped  int
	Warnings []string
}

// Explorer orchestrates a query over an immutable snapshot fetched per call.
// It holds no per-query state and is safe for concurrent use.
type Explorer struct {
	fetcher   domain.EventFetcher
	publisher EventPublisher
	upstream  AvailabilityChecker
	limit     int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithPublisher publishes matched events after every successful query.
func WithPublisher(p EventPublisher) Option {
	return func(e *Explorer) { e.publisher = p }
}

// WithAvailability makes CheckReadiness fail while the upstream is unavailable.
func WithAvailability(a AvailabilityChecker) Option {
	return func(e *Explorer) { e.upstream = a }
}

// New creates an Explorer. limit caps the number of features requested per fetch.
func New(fetcher domain.EventFetcher, limit int, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Explorer {
	e := &Explorer{
		fetcher: fetcher,
		limit:   limit,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckReadiness returns nil while the upstream source is reachable, or an
// error describing why the service should not receive traffic.
func (e *Explorer) CheckReadiness(_ context.Context) error {
	if e.upstream != nil && !e.upstream.Available() {
		return errors.New("usgs circuit breaker is open")
	}
	return nil
}

// Run executes one query. A *domain.ValidationError is returned before any
// network call when the criteria are invalid; a fetch failure is returned as
// the gateway's error and the filter never sees partial data. An empty match
// is a successful result.
func (e *Explorer) Run(ctx context.Context, c domain.Criteria) (Result, error) {
	res := Result{QueryID: uuid.NewString(), Criteria: c}
	log := e.logger.With("query_id", res.QueryID)

	if err := c.Validate(); err != nil {
		e.metrics.Queries.WithLabelValues("invalid").Inc()
		log.Info("rejected invalid criteria", "error", err)
		return res, err
	}

	q := c.Query(e.limit)
	raws, err := e.fetcher.FetchEvents(ctx, q)
	if err != nil {
		e.metrics.Queries.WithLabelValues("fetch_error").Inc()
		return res, fmt.Errorf("fetch events: %w", err)
	}
	res.Fetched = len(raws)
	e.metrics.EventsFetched.Add(float64(len(raws)))

	records, dropped := domain.NormalizeFeatures(raws, log)
	res.Dropped = dropped
	e.metrics.EventsDropped.Add(float64(dropped))

	events, err := domain.Filter(records, c)
	if err != nil {
		e.metrics.Queries.WithLabelValues("invalid").Inc()
		return res, err
	}
	res.Events = events
	res.Stats = domain.Summarize(events)
	res.Warnings = warnings(res, q.Limit)
	e.metrics.EventsMatched.Observe(float64(len(events)))
	e.metrics.Queries.WithLabelValues("success").Inc()

	log.Info("query complete",
		"fetched", res.Fetched,
		"dropped", res.Dropped,
		"matched", len(events),
	)

	if e.publisher != nil && len(events) > 0 {
		if err := e.publish(ctx, res.QueryID, events); err != nil {
			e.metrics.PublishErrors.Inc()
			log.Error("publish events failed", "error", err, "count", len(events))
			res.Warnings = append(res.Warnings, "matched events could not be published")
		} else {
			e.metrics.EventsPublished.Add(float64(len(events)))
		}
	}
	return res, nil
}

func (e *Explorer) publish(ctx context.Context, queryID string, events []domain.EventRecord) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultPublishTimeout)
	defer cancel()
	return e.publisher.Publish(ctx, queryID, events)
}

func warnings(res Result, limit int) []string {
	var out []string
	if res.Dropped > 0 {
		out = append(out, fmt.Sprintf("%d event(s) dropped for invalid location, time or id", res.Dropped))
	}
	if limit > 0 && res.Fetched >= limit {
		out = append(out, fmt.Sprintf("result reached the %d event limit; narrow the date or magnitude range", limit))
	}
	if _, ok := res.Stats.MeanMagnitude.Get(); !ok && res.Stats.Count > 0 {
		out = append(out, "no matched event has a reported magnitude")
	}
	return out
}
