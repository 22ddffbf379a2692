package domain

import (
	"time"
)

// FeatureCollection is the GeoJSON envelope returned by the USGS event service.
type FeatureCollection struct {
	Type     string       `json:"type"`
	Metadata Metadata     `json:"metadata"`
	Features []RawFeature `json:"features"`
}

// Metadata describes a USGS response.
type Metadata struct {
	Generated int64  `json:"generated"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Count     int    `json:"count"`
}

// RawFeature is one unvalidated event as delivered by the API. Every field the
// service may omit or null is a pointer so absence survives decoding.
type RawFeature struct {
	ID         string        `json:"id"`
	Properties RawProperties `json:"properties"`
	Geometry   *RawGeometry  `json:"geometry"`
}

// RawProperties holds the feature properties used by the explorer.
type RawProperties struct {
	Mag     *float64 `json:"mag"`
	Place   *string  `json:"place"`
	Time    *int64   `json:"time"`
	Updated *int64   `json:"updated"`
	URL     *string  `json:"url"`
	Detail  *string  `json:"detail"`
	Alert   *string  `json:"alert"`
	Status  *string  `json:"status"`
	MagType *string  `json:"magType"`
	Title   *string  `json:"title"`
}

// RawGeometry is a GeoJSON Point: [lon, lat, depth].
type RawGeometry struct {
	Type        string     `json:"type"`
	Coordinates []*float64 `json:"coordinates"`
}

// Point is a WGS-84 latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// EventRecord is the validated, fixed-shape representation of one seismic event.
// Records are immutable once built.
type EventRecord struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Location  Point     `json:"location"`
	Depth     Optional  `json:"depth_km"`
	Magnitude Optional  `json:"magnitude"`
	MagType   string    `json:"mag_type,omitempty"`
	Place     string    `json:"place"`
	DetailURL string    `json:"url"`
	Alert     string    `json:"alert,omitempty"`
	Status    string    `json:"status,omitempty"`
	Updated   time.Time `json:"updated,omitempty"`
}
