package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score

	// Bounds is the provider's extent for the place, when it reports one.
	Bounds *BoundingBox
}

// Geocoder resolves place names so users can select a region by name.
type Geocoder interface {
	// ForwardGeocode converts a free-form place query to its location and extent.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)
}

// RegionFromGeocoding turns a geocoding result into a single-rectangle region.
// The second result is false when the provider reported no extent.
func RegionFromGeocoding(res GeocodingResult) (Region, bool) {
	if res.Bounds == nil {
		return nil, false
	}
	poly := res.Bounds.Polygon()
	if poly.Validate() != nil {
		return nil, false
	}
	return Region{poly}, true
}
