package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/quake-explorer/internal/domain"
	"github.com/couchcryptid/quake-explorer/internal/export"
	"github.com/couchcryptid/quake-explorer/internal/pipeline"
	"github.com/couchcryptid/quake-explorer/internal/regions"
)

// maxBodyBytes caps POST bodies; a few thousand polygon vertices fit easily.
const maxBodyBytes = 1 << 20

// Querier runs one explorer query.
type Querier interface {
	Run(ctx context.Context, c domain.Criteria) (pipeline.Result, error)
}

// Defaults fill criteria fields a request leaves out.
type Defaults struct {
	Lookback     time.Duration
	MinMagnitude float64
	MaxMagnitude float64
}

// API serves the /api/v1 routes.
type API struct {
	querier  Querier
	presets  *regions.Catalog
	geocoder domain.Geocoder
	defaults Defaults
	now      func() time.Time
	logger   *slog.Logger
}

// NewAPI creates the query API. geocoder may be nil, which disables region lookup.
func NewAPI(q Querier, presets *regions.Catalog, geocoder domain.Geocoder, defaults Defaults, logger *slog.Logger) *API {
	return &API{
		querier:  q,
		presets:  presets,
		geocoder: geocoder,
		defaults: defaults,
		now:      domain.Now,
		logger:   logger,
	}
}

// Routes registers the API handlers on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/earthquakes", a.listEarthquakes)
	r.Post("/earthquakes/search", a.searchEarthquakes)
	r.Get("/regions", a.listRegions)
	r.Get("/regions/lookup", a.lookupRegion)
}

// queryResponse is the JSON form of a pipeline.Result.
type queryResponse struct {
	QueryID    string               `json:"query_id"`
	Events     []domain.EventRecord `json:"events"`
	Statistics domain.Statistics    `json:"statistics"`
	Fetched    int                  `json:"fetched"`
	Dropped    int                  `json:"dropped"`
	Warnings   []string             `json:"warnings"`
}

func (a *API) listEarthquakes(w http.ResponseWriter, r *http.Request) {
	c, format, err := a.criteriaFromQuery(r.URL.Query())
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	a.runQuery(w, r, c, format)
}

func (a *API) searchEarthquakes(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), nil)
		return
	}
	c, format, err := a.criteriaFromSearch(req)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	a.runQuery(w, r, c, format)
}

func (a *API) runQuery(w http.ResponseWriter, r *http.Request, c domain.Criteria, format export.Format) {
	res, err := a.querier.Run(r.Context(), c)
	if err != nil {
		if !isValidation(err) {
			a.logger.Error("query failed", "request_id", GetRequestID(r.Context()), "error", err)
		}
		writeQueryError(w, r, err)
		return
	}

	if format == export.FormatJSON {
		events := res.Events
		if events == nil {
			events = []domain.EventRecord{}
		}
		warnings := res.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		writeJSON(w, http.StatusOK, queryResponse{
			QueryID:    res.QueryID,
			Events:     events,
			Statistics: res.Stats,
			Fetched:    res.Fetched,
			Dropped:    res.Dropped,
			Warnings:   warnings,
		})
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, res.Events, res.Stats); err != nil {
		a.logger.Error("export failed", "format", format, "error", err)
		writeError(w, r, http.StatusInternalServerError, "export failed", nil)
		return
	}
	filename := fmt.Sprintf("earthquakes-%s.%s", a.now().Format("20060102-150405"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Query-Id", res.QueryID)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type regionResponse struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Polygons    latLonPairs         `json:"polygons"`
	Bounds      *domain.BoundingBox `json:"bounds,omitempty"`
}

func (a *API) listRegions(w http.ResponseWriter, _ *http.Request) {
	presets := a.presets.List()
	out := make([]regionResponse, len(presets))
	for i, p := range presets {
		out[i] = regionResponse{Name: p.Name, Description: p.Description, Polygons: pairsFromRegion(p.Region)}
		if box, ok := p.Region.BoundingBox(); ok {
			out[i].Bounds = &box
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": out})
}

func (a *API) lookupRegion(w http.ResponseWriter, r *http.Request) {
	if a.geocoder == nil {
		writeError(w, r, http.StatusNotFound, "place lookup is not enabled", nil)
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, r, http.StatusBadRequest, "query parameter q is required", nil)
		return
	}

	res, err := a.geocoder.ForwardGeocode(r.Context(), q)
	if err != nil {
		a.logger.Warn("place lookup failed", "query", q, "error", err)
		writeError(w, r, http.StatusBadGateway, "place lookup failed", nil)
		return
	}
	region, ok := domain.RegionFromGeocoding(res)
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("no region found for %q", q), nil)
		return
	}
	writeJSON(w, http.StatusOK, regionResponse{
		Name:        res.PlaceName,
		Description: res.FormattedAddress,
		Polygons:    pairsFromRegion(region),
		Bounds:      res.Bounds,
	})
}
