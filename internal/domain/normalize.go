package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

var (
	errMissingID          = errors.New("missing id")
	errMissingTime        = errors.New("missing time")
	errMissingCoordinates = errors.New("missing latitude/longitude")
)

// NormalizeFeature validates one raw feature and converts it into an EventRecord.
// Absent magnitude and depth are tolerated and recorded as unknown; absent or
// out-of-range coordinates, a missing time, or a missing id are rejected.
func NormalizeFeature(raw RawFeature) (EventRecord, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return EventRecord{}, errMissingID
	}
	if raw.Properties.Time == nil {
		return EventRecord{}, errMissingTime
	}

	if raw.Geometry == nil || len(raw.Geometry.Coordinates) < 2 ||
		raw.Geometry.Coordinates[0] == nil || raw.Geometry.Coordinates[1] == nil {
		return EventRecord{}, errMissingCoordinates
	}
	lon := *raw.Geometry.Coordinates[0]
	lat := *raw.Geometry.Coordinates[1]
	if err := ValidatePoint(Point{Lat: lat, Lon: lon}); err != nil {
		return EventRecord{}, err
	}

	depth := Unknown()
	if len(raw.Geometry.Coordinates) > 2 {
		depth = OptionalFromPtr(raw.Geometry.Coordinates[2])
	}

	rec := EventRecord{
		ID:        id,
		Time:      time.UnixMilli(*raw.Properties.Time).UTC(),
		Location:  Point{Lat: lat, Lon: lon},
		Depth:     depth,
		Magnitude: OptionalFromPtr(raw.Properties.Mag),
		MagType:   deref(raw.Properties.MagType),
		Place:     deref(raw.Properties.Place),
		DetailURL: deref(raw.Properties.URL),
		Alert:     deref(raw.Properties.Alert),
		Status:    deref(raw.Properties.Status),
	}
	if raw.Properties.Updated != nil {
		rec.Updated = time.UnixMilli(*raw.Properties.Updated).UTC()
	}
	return rec, nil
}

// NormalizeFeatures converts a response page into records, dropping invalid
// features with a warning. It returns the kept records in input order and the
// number dropped.
func NormalizeFeatures(raws []RawFeature, logger *slog.Logger) ([]EventRecord, int) {
	out := make([]EventRecord, 0, len(raws))
	dropped := 0
	for i, raw := range raws {
		rec, err := NormalizeFeature(raw)
		if err != nil {
			logger.Warn("dropping invalid event record",
				"event_id", raw.ID,
				"index", i,
				"error", err,
			)
			dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, dropped
}

// ValidatePoint checks WGS-84 coordinate ranges.
func ValidatePoint(p Point) error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
