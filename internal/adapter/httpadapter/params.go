package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/couchcryptid/quake-explorer/internal/domain"
	"github.com/couchcryptid/quake-explorer/internal/export"
)

// searchRequest is the POST /earthquakes/search body. Omitted fields take
// the server defaults; an explicit null or empty string opens that bound.
type searchRequest struct {
	Start        *string       `json:"start"`
	End          *string       `json:"end"`
	MinMagnitude optionalParam `json:"min_magnitude"`
	MaxMagnitude optionalParam `json:"max_magnitude"`
	OrderBy      *string       `json:"orderby"`
	AlertLevel   string        `json:"alertlevel"`
	Regions      []string      `json:"regions"`
	BBoxes       [][4]float64  `json:"bbox"`
	Polygons     latLonPairs   `json:"polygons"`
	Format       string        `json:"format"`
}

// optionalParam records whether a JSON field was present, including as null.
type optionalParam struct {
	set   bool
	value domain.Optional
}

func (p *optionalParam) UnmarshalJSON(data []byte) error {
	p.set = true
	return json.Unmarshal(data, &p.value)
}

// criteriaBuilder accumulates criteria and field problems from request input.
type criteriaBuilder struct {
	api      *API
	c        domain.Criteria
	problems []domain.FieldError
}

func (a *API) newCriteriaBuilder() *criteriaBuilder {
	return &criteriaBuilder{
		api: a,
		c:   domain.DefaultCriteria(a.now(), a.defaults.Lookback, a.defaults.MinMagnitude, a.defaults.MaxMagnitude),
	}
}

func (b *criteriaBuilder) fail(field string, err error) {
	b.problems = append(b.problems, domain.FieldError{Field: field, Message: err.Error()})
}

func (b *criteriaBuilder) start(s string) {
	t, err := domain.ParseTimeBound(s, false)
	if err != nil {
		b.fail("start", err)
		return
	}
	b.c.Start = t
}

func (b *criteriaBuilder) end(s string) {
	t, err := domain.ParseTimeBound(s, true)
	if err != nil {
		b.fail("end", err)
		return
	}
	b.c.End = t
}

func (b *criteriaBuilder) magnitude(field, s string, dst *domain.Optional) {
	o, err := domain.ParseMagnitude(s)
	if err != nil {
		b.fail(field, err)
		return
	}
	*dst = o
}

func (b *criteriaBuilder) presets(names []string) {
	var cleaned []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return
	}
	region, err := b.api.presets.Resolve(cleaned)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			b.problems = append(b.problems, verr.Problems...)
			return
		}
		b.fail("region", err)
		return
	}
	b.c.Regions = append(b.c.Regions, region...)
}

func (b *criteriaBuilder) bbox(box domain.BoundingBox) {
	if box.MinLat > box.MaxLat || box.MinLon > box.MaxLon {
		b.fail("bbox", fmt.Errorf("bounding box %v has min greater than max", box))
		return
	}
	b.c.Regions = append(b.c.Regions, box.Polygon())
}

func (b *criteriaBuilder) format(s string) export.Format {
	f, err := export.ParseFormat(s)
	if err != nil {
		b.fail("format", err)
	}
	return f
}

func (b *criteriaBuilder) result() (domain.Criteria, error) {
	if len(b.problems) > 0 {
		return domain.Criteria{}, &domain.ValidationError{Problems: b.problems}
	}
	return b.c, nil
}

// criteriaFromQuery builds criteria from GET parameters: start, end, minmag,
// maxmag, orderby, alertlevel, region (comma-separated preset names), bbox
// (repeatable minLat,minLon,maxLat,maxLon) and format.
func (a *API) criteriaFromQuery(v url.Values) (domain.Criteria, export.Format, error) {
	b := a.newCriteriaBuilder()
	if v.Has("start") {
		b.start(v.Get("start"))
	}
	if v.Has("end") {
		b.end(v.Get("end"))
	}
	if v.Has("minmag") {
		b.magnitude("minmag", v.Get("minmag"), &b.c.MinMagnitude)
	}
	if v.Has("maxmag") {
		b.magnitude("maxmag", v.Get("maxmag"), &b.c.MaxMagnitude)
	}
	if v.Has("orderby") {
		b.c.OrderBy = v.Get("orderby")
	}
	b.c.AlertLevel = v.Get("alertlevel")
	if s := v.Get("region"); s != "" {
		b.presets(strings.Split(s, ","))
	}
	for _, s := range v["bbox"] {
		box, err := domain.ParseBoundingBox(s)
		if err != nil {
			b.fail("bbox", err)
			continue
		}
		b.bbox(box)
	}
	format := b.format(v.Get("format"))

	c, err := b.result()
	return c, format, err
}

func (a *API) criteriaFromSearch(req searchRequest) (domain.Criteria, export.Format, error) {
	b := a.newCriteriaBuilder()
	if req.Start != nil {
		b.start(*req.Start)
	}
	if req.End != nil {
		b.end(*req.End)
	}
	if req.MinMagnitude.set {
		b.c.MinMagnitude = req.MinMagnitude.value
	}
	if req.MaxMagnitude.set {
		b.c.MaxMagnitude = req.MaxMagnitude.value
	}
	if req.OrderBy != nil {
		b.c.OrderBy = *req.OrderBy
	}
	b.c.AlertLevel = req.AlertLevel
	b.presets(req.Regions)
	for _, v := range req.BBoxes {
		b.bbox(domain.BoundingBox{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]})
	}
	b.c.Regions = append(b.c.Regions, regionFromPairs(req.Polygons)...)
	format := b.format(req.Format)

	c, err := b.result()
	return c, format, err
}

// latLonPairs is the wire form of a region: one [lat, lon] pair per vertex.
// Search bodies accept it and region responses emit it.
type latLonPairs = [][][2]float64

func regionFromPairs(rings latLonPairs) domain.Region {
	out := make(domain.Region, 0, len(rings))
	for _, ring := range rings {
		poly := make(domain.Polygon, len(ring))
		for i, pt := range ring {
			poly[i] = domain.Point{Lat: pt[0], Lon: pt[1]}
		}
		out = append(out, poly)
	}
	return out
}

func pairsFromRegion(r domain.Region) latLonPairs {
	out := make(latLonPairs, len(r))
	for i, poly := range r {
		out[i] = make([][2]float64, len(poly))
		for j, pt := range poly {
			out[i][j] = [2]float64{pt.Lat, pt.Lon}
		}
	}
	return out
}

func isValidation(err error) bool {
	var verr *domain.ValidationError
	return errors.As(err, &verr)
}
