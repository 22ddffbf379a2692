package domain

import (
	"time"
)

// The magnitude scale spanned by the explorer's range selector. A criteria
// range covering the whole scale places no magnitude restriction.
const (
	MagnitudeScaleMin = 0.0
	MagnitudeScaleMax = 10.0
)

// Ordering values accepted by the USGS service.
const (
	OrderTime         = "time"
	OrderTimeAsc      = "time-asc"
	OrderMagnitude    = "magnitude"
	OrderMagnitudeAsc = "magnitude-asc"
)

var (
	validOrders = map[string]bool{"": true, OrderTime: true, OrderTimeAsc: true, OrderMagnitude: true, OrderMagnitudeAsc: true}
	validAlerts = map[string]bool{"": true, "green": true, "yellow": true, "orange": true, "red": true}
)

// Criteria is the full set of user filter parameters for one query. It is a
// value: build one per action and pass it down the pipeline.
//
// Start and End bound event time inclusively; a zero time leaves that side
// open. MinMagnitude and MaxMagnitude bound known magnitudes inclusively; an
// unknown bound leaves that side open.
//
// Unknown-magnitude policy: an event with no reported magnitude is kept only
// when the magnitude range is unrestricted, i.e. both bounds are open or
// cover [MagnitudeScaleMin, MagnitudeScaleMax]. Any narrower range excludes
// it, because the bound cannot be verified.
type Criteria struct {
	Start        time.Time
	End          time.Time
	MinMagnitude Optional
	MaxMagnitude Optional
	Regions      Region

	// Passed to the fetch gateway only; not part of the in-process filter.
	OrderBy    string
	AlertLevel string
}

// DefaultCriteria mirrors the explorer's initial form: the lookback window
// ending now and magnitudes 6.0 through 9.0, with no region.
func DefaultCriteria(now time.Time, lookback time.Duration, minMag, maxMag float64) Criteria {
	now = now.UTC()
	return Criteria{
		Start:        now.Add(-lookback),
		End:          now,
		MinMagnitude: Known(minMag),
		MaxMagnitude: Known(maxMag),
		OrderBy:      OrderTime,
	}
}

// DefaultCriteriaNow is DefaultCriteria evaluated at the package clock.
func DefaultCriteriaNow(lookback time.Duration, minMag, maxMag float64) Criteria {
	return DefaultCriteria(Now(), lookback, minMag, maxMag)
}

// Validate returns a *ValidationError describing every problem, or nil.
func (c Criteria) Validate() error {
	verr := &ValidationError{}
	if !c.Start.IsZero() && !c.End.IsZero() && c.Start.After(c.End) {
		verr.add("start", "start %s is after end %s", c.Start.Format(time.RFC3339), c.End.Format(time.RFC3339))
	}
	lo, loOK := c.MinMagnitude.Get()
	hi, hiOK := c.MaxMagnitude.Get()
	if loOK && hiOK && lo > hi {
		verr.add("min_magnitude", "minimum %v is greater than maximum %v", lo, hi)
	}
	if !validOrders[c.OrderBy] {
		verr.add("orderby", "unsupported ordering %q", c.OrderBy)
	}
	if !validAlerts[c.AlertLevel] {
		verr.add("alertlevel", "unsupported alert level %q", c.AlertLevel)
	}
	if err := c.Regions.Validate(); err != nil {
		verr.merge(err.(*ValidationError))
	}
	return verr.orNil()
}

// MagnitudeUnrestricted reports whether the magnitude range spans the whole scale.
func (c Criteria) MagnitudeUnrestricted() bool {
	lo, loOK := c.MinMagnitude.Get()
	hi, hiOK := c.MaxMagnitude.Get()
	return (!loOK || lo <= MagnitudeScaleMin) && (!hiOK || hi >= MagnitudeScaleMax)
}

// Query converts the criteria into a fetch request. The region, when present,
// becomes a bounding box pre-filter; exact polygon matching still happens in
// Filter.
func (c Criteria) Query(limit int) Query {
	q := Query{
		Start:        c.Start,
		End:          c.End,
		MinMagnitude: c.MinMagnitude,
		MaxMagnitude: c.MaxMagnitude,
		OrderBy:      c.OrderBy,
		AlertLevel:   c.AlertLevel,
		Limit:        limit,
	}
	if box, ok := c.Regions.BoundingBox(); ok {
		q.Bounds = &box
	}
	return q
}
