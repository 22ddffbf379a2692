package domain

import (
	"errors"
	"fmt"
	"math"
)

// geomEpsilon absorbs floating point noise in planar orientation tests.
const geomEpsilon = 1e-12

var (
	errTooFewVertices   = errors.New("polygon needs at least 3 distinct vertices")
	errZeroArea         = errors.New("polygon has zero area")
	errSelfIntersecting = errors.New("polygon edges intersect")
)

// Polygon is an ordered ring of vertices. The last vertex connects back to the
// first; an explicit closing vertex equal to the first is accepted and ignored.
type Polygon []Point

// Region is the union of zero or more polygons. An empty Region places no
// spatial restriction on events.
type Region []Polygon

// BoundingBox is an axis-aligned latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Rectangle builds the 4-vertex polygon covering [minLat, maxLat] × [minLon, maxLon].
func Rectangle(minLat, minLon, maxLat, maxLon float64) Polygon {
	return Polygon{
		{Lat: minLat, Lon: minLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: maxLat, Lon: minLon},
	}
}

// Polygon returns the rectangle for the box.
func (b BoundingBox) Polygon() Polygon {
	return Rectangle(b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// Validate reports why a polygon cannot be used for matching: bad coordinates,
// fewer than three distinct vertices, crossing edges, or zero area.
func (p Polygon) Validate() error {
	for i, v := range p {
		if err := ValidatePoint(v); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	ring := p.ring()
	if len(ring) < 3 {
		return errTooFewVertices
	}
	if selfIntersects(ring) {
		return errSelfIntersecting
	}
	if math.Abs(signedArea(ring)) < geomEpsilon {
		return errZeroArea
	}
	return nil
}

// Contains reports whether pt lies inside the polygon or on its boundary,
// treating latitude/longitude as planar coordinates. Invalid polygons contain
// nothing.
func (p Polygon) Contains(pt Point) bool {
	if p.Validate() != nil {
		return false
	}
	return ringContains(p.ring(), pt)
}

// Validate checks every polygon in the region.
func (r Region) Validate() error {
	verr := &ValidationError{}
	for i, poly := range r {
		if err := poly.Validate(); err != nil {
			verr.add(fmt.Sprintf("regions[%d]", i), "%v", err)
		}
	}
	return verr.orNil()
}

// BoundingBox returns the smallest box covering every vertex of the region.
// The second result is false for an empty region.
func (r Region) BoundingBox() (BoundingBox, bool) {
	var box BoundingBox
	found := false
	for _, poly := range r {
		for _, v := range poly {
			if !found {
				box = BoundingBox{MinLat: v.Lat, MinLon: v.Lon, MaxLat: v.Lat, MaxLon: v.Lon}
				found = true
				continue
			}
			box.MinLat = math.Min(box.MinLat, v.Lat)
			box.MinLon = math.Min(box.MinLon, v.Lon)
			box.MaxLat = math.Max(box.MaxLat, v.Lat)
			box.MaxLon = math.Max(box.MaxLon, v.Lon)
		}
	}
	return box, found
}

// Matches reports whether pt falls inside any polygon of the region. An empty
// region matches every point.
func Matches(pt Point, r Region) bool {
	return NewMatcher(r).Matches(pt)
}

// Matcher is a Region with its polygons validated once, for repeated tests.
type Matcher struct {
	unrestricted bool
	rings        [][]Point
}

// NewMatcher prepares r for matching. Invalid polygons are skipped, so a
// region made only of invalid polygons matches nothing.
func NewMatcher(r Region) *Matcher {
	m := &Matcher{unrestricted: len(r) == 0}
	for _, poly := range r {
		if poly.Validate() == nil {
			m.rings = append(m.rings, poly.ring())
		}
	}
	return m
}

// Matches reports whether pt is inside at least one valid polygon.
func (m *Matcher) Matches(pt Point) bool {
	if m.unrestricted {
		return true
	}
	for _, ring := range m.rings {
		if ringContains(ring, pt) {
			return true
		}
	}
	return false
}

// ring drops consecutive duplicate vertices and an explicit closing vertex.
func (p Polygon) ring() []Point {
	out := make([]Point, 0, len(p))
	for _, v := range p {
		if len(out) > 0 && samePoint(out[len(out)-1], v) {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && samePoint(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

// ringContains is an even-odd ray cast along +x (longitude) with an explicit
// boundary check so edge and vertex points count as inside.
func ringContains(ring []Point, pt Point) bool {
	n := len(ring)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[j], ring[i]
		if onSegment(pt, a, b) {
			return true
		}
		if (b.Lat > pt.Lat) != (a.Lat > pt.Lat) {
			x := (a.Lon-b.Lon)*(pt.Lat-b.Lat)/(a.Lat-b.Lat) + b.Lon
			if pt.Lon < x {
				inside = !inside
			}
		}
	}
	return inside
}

func signedArea(ring []Point) float64 {
	var sum float64
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		sum += ring[j].Lon*ring[i].Lat - ring[i].Lon*ring[j].Lat
	}
	return sum / 2
}

// selfIntersects checks every pair of non-adjacent edges.
func selfIntersects(ring []Point) bool {
	n := len(ring)
	for i := 0; i < n; i++ {
		a1, a2 := ring[i], ring[(i+1)%n]
		for k := i + 1; k < n; k++ {
			if k == i+1 || (i == 0 && k == n-1) {
				continue
			}
			b1, b2 := ring[k], ring[(k+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// cross is the z component of (b-a) × (c-a) with x=lon, y=lat.
func cross(a, b, c Point) float64 {
	return (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
}

func orientation(a, b, c Point) int {
	v := cross(a, b, c)
	switch {
	case v > geomEpsilon:
		return 1
	case v < -geomEpsilon:
		return -1
	default:
		return 0
	}
}

func onSegment(p, a, b Point) bool {
	if orientation(a, b, p) != 0 {
		return false
	}
	return p.Lon >= math.Min(a.Lon, b.Lon)-geomEpsilon && p.Lon <= math.Max(a.Lon, b.Lon)+geomEpsilon &&
		p.Lat >= math.Min(a.Lat, b.Lat)-geomEpsilon && p.Lat <= math.Max(a.Lat, b.Lat)+geomEpsilon
}

func segmentsIntersect(p1, p2, q1, q2 Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)
	if o1 != o2 && o3 != o4 && o1 != 0 && o2 != 0 && o3 != 0 && o4 != 0 {
		return true
	}
	return (o1 == 0 && onSegment(q1, p1, p2)) ||
		(o2 == 0 && onSegment(q2, p1, p2)) ||
		(o3 == 0 && onSegment(p1, q1, q2)) ||
		(o4 == 0 && onSegment(p2, q1, q2))
}

func samePoint(a, b Point) bool {
	return math.Abs(a.Lat-b.Lat) < geomEpsilon && math.Abs(a.Lon-b.Lon) < geomEpsilon
}
