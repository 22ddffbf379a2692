package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// ParseTimeBound parses a user-supplied start or end time. RFC 3339,
// "2006-01-02T15:04:05" (taken as UTC) and date-only forms are accepted. A
// date-only end expands to the last instant of that UTC day so the whole day
// is included. An empty string returns the zero time, an open bound.
func ParseTimeBound(s string, isEnd bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q is not RFC 3339 or YYYY-MM-DD", s)
	}
	if isEnd {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

// ParseMagnitude parses a magnitude bound. An empty string is an open bound.
func ParseMagnitude(s string) (Optional, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Unknown(), fmt.Errorf("magnitude %q is not a number", s)
	}
	o := Known(v)
	if !o.IsKnown() {
		return Unknown(), fmt.Errorf("magnitude %q is not finite", s)
	}
	return o, nil
}

// ParseBoundingBox parses "minLat,minLon,maxLat,maxLon".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box %q must be minLat,minLon,maxLat,maxLon", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bounding box %q: %q is not a number", s, p)
		}
		v[i] = f
	}
	box := BoundingBox{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}
	if box.MinLat > box.MaxLat || box.MinLon > box.MaxLon {
		return BoundingBox{}, fmt.Errorf("bounding box %q has min greater than max", s)
	}
	return box, nil
}
