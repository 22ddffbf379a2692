// Package domain models seismic event data from the USGS FDSN event service
// and the region/criteria filtering applied to it.
//
// # Data Source
//
// Events come from the USGS Earthquake Hazards Program event web service,
// https://earthquake.usgs.gov/fdsnws/event/1/query, requested with
// format=geojson. The response is a GeoJSON FeatureCollection; each Feature
// is one event.
//
// # USGS GeoJSON Conventions
//
// Coordinates:
//
//	geometry.coordinates = [longitude, latitude, depth]
//	Longitude first (GeoJSON order). Depth is kilometres below sea level and
//	may be negative for events above sea level. Depth may be absent.
//
// Time:
//
//	properties.time and properties.updated are milliseconds since the Unix
//	epoch, UTC.
//
// Magnitude:
//
//	properties.mag is a decimal on the scale named by properties.magType
//	(ml, mb, mww, ...). It is null when the network has not reported one.
//	Small events may carry negative magnitudes.
//
// Unknown values:
//
//	Missing or null magnitude and depth are carried as an unknown [Optional]
//	rather than zero. Unknown values are listed but never enter numeric
//	aggregates, and never satisfy a bounded magnitude range.
//
// # Geometry
//
// Region matching is planar: latitude and longitude are used directly as
// Cartesian y and x. This is an approximation that is adequate for
// country-sized regions and is not geodesically exact. Polygons crossing the
// antimeridian are not supported. Points exactly on a polygon edge or vertex
// count as inside.
package domain
