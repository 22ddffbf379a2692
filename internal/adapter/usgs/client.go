// Package usgs implements the event fetch gateway against the USGS FDSN
// event web service.
package usgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/quake-explorer/internal/adapter/resilience"
	"github.com/couchcryptid/quake-explorer/internal/domain"
	"github.com/couchcryptid/quake-explorer/internal/observability"
)

// DefaultBaseURL is the public FDSN event query endpoint.
const DefaultBaseURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// timeLayout is the ISO 8601 form accepted by starttime/endtime.
const timeLayout = "2006-01-02T15:04:05.000"

// Doer executes HTTP requests. *resilience.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements domain.EventFetcher.
type Client struct {
	baseURL  string
	http     Doer
	limiter  *rate.Limiter
	deadline time.Duration
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// RequestsPerSecond throttles outbound queries; 0 disables throttling.
	RequestsPerSecond float64
	// Deadline caps one FetchEvents call across every retry; 0 leaves it to
	// the caller's context.
	Deadline time.Duration
}

// NewClient creates a USGS client that sends requests through doer.
func NewClient(doer Doer, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL:  baseURL,
		http:     doer,
		limiter:  limiter,
		deadline: opts.Deadline,
		metrics:  metrics,
		logger:   logger,
	}
}

// FetchEvents runs one query. A 204 response or an empty feature list is a
// valid empty result. Transport failures, 5xx and 429 responses become
// retryable *domain.FetchError values; other statuses and undecodable bodies
// are not retryable. Running past the deadline is a retryable failure.
func (c *Client) FetchEvents(ctx context.Context, q domain.Query) ([]domain.RawFeature, error) {
	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.FetchError{Op: "usgs query", Retryable: true, Err: err}
	}

	fullURL := c.baseURL + "?" + queryParams(q).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return nil, &domain.FetchError{Op: "usgs query", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	start := time.Now()
	features, err := c.do(req)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		c.logger.Error("usgs query failed", "url", fullURL, "error", err)
		return nil, err
	case len(features) == 0:
		c.metrics.FetchRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.FetchRequests.WithLabelValues("success").Inc()
	}
	c.logger.Debug("usgs query complete", "url", fullURL, "features", len(features))
	return features, nil
}

func (c *Client) do(req *http.Request) ([]domain.RawFeature, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Op: "usgs query", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return []domain.RawFeature{}, nil
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &domain.FetchError{Op: "usgs query", StatusCode: resp.StatusCode, Retryable: true, Err: errors.New(string(body))}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &domain.FetchError{Op: "usgs query", StatusCode: resp.StatusCode, Err: errors.New(string(body))}
	}

	var fc domain.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, &domain.FetchError{Op: "usgs query", Err: fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)}
	}
	if fc.Features == nil {
		return []domain.RawFeature{}, nil
	}
	return fc.Features, nil
}

// queryParams encodes q as FDSN query parameters. url.Values.Encode sorts
// keys, so equal queries produce equal strings.
func queryParams(q domain.Query) url.Values {
	v := url.Values{"format": {"geojson"}}
	if !q.Start.IsZero() {
		v.Set("starttime", q.Start.UTC().Format(timeLayout))
	}
	if !q.End.IsZero() {
		v.Set("endtime", q.End.UTC().Format(timeLayout))
	}
	if mag, ok := q.MinMagnitude.Get(); ok {
		v.Set("minmagnitude", formatFloat(mag))
	}
	if mag, ok := q.MaxMagnitude.Get(); ok {
		v.Set("maxmagnitude", formatFloat(mag))
	}
	if q.OrderBy != "" {
		v.Set("orderby", q.OrderBy)
	}
	if q.AlertLevel != "" {
		v.Set("alertlevel", q.AlertLevel)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if b := q.Bounds; b != nil {
		v.Set("minlatitude", formatFloat(b.MinLat))
		v.Set("maxlatitude", formatFloat(b.MaxLat))
		v.Set("minlongitude", formatFloat(b.MinLon))
		v.Set("maxlongitude", formatFloat(b.MaxLon))
	}
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var _ Doer = (*resilience.Client)(nil)
