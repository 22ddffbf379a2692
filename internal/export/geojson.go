package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/quake-explorer/internal/domain"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Geometry   geometry          `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type geometry struct {
	Type string `json:"type"`
	// [lon, lat] or [lon, lat, depth]; depth is omitted when unknown.
	Coordinates []float64 `json:"coordinates"`
}

type featureProperties struct {
	Magnitude domain.Optional `json:"mag"`
	Place     string          `json:"place"`
	Time      int64           `json:"time"`
	TimeUTC   string          `json:"time_utc"`
	URL       string          `json:"url"`
	Alert     string          `json:"alert,omitempty"`
}

// WriteGeoJSON writes a FeatureCollection of Points in USGS coordinate
// order, with times as epoch milliseconds.
func WriteGeoJSON(w io.Writer, events []domain.EventRecord) error {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, len(events))}
	for i, e := range events {
		coords := []float64{e.Location.Lon, e.Location.Lat}
		if d, ok := e.Depth.Get(); ok {
			coords = append(coords, d)
		}
		fc.Features[i] = feature{
			Type:     "Feature",
			ID:       e.ID,
			Geometry: geometry{Type: "Point", Coordinates: coords},
			Properties: featureProperties{
				Magnitude: e.Magnitude,
				Place:     e.Place,
				Time:      e.Time.UnixMilli(),
				TimeUTC:   e.Time.UTC().Format(time.RFC3339),
				URL:       e.DetailURL,
				Alert:     e.Alert,
			},
		}
	}
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return nil
}
