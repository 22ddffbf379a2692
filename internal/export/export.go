// Package export serializes filtered events for download. CSV, XLSX and
// Parquet share one column set; GeoJSON feeds map widgets.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/quake-explorer/internal/domain"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// TimeLayout renders event times as timezone-naive UTC text, which
// spreadsheets accept without conversion.
const TimeLayout = "2006-01-02 15:04:05"

// Columns is the header shared by the tabular formats.
var Columns = []string{
	"id", "time_utc", "magnitude", "place", "latitude", "longitude", "depth_km", "alert_level", "url",
}

// ParseFormat resolves a case-insensitive format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatGeoJSON, FormatCSV, FormatXLSX, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatGeoJSON:
		return "application/geo+json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/json"
	}
}

// Extension returns the file extension, without a dot.
func (f Format) Extension() string {
	if f == "" {
		return string(FormatJSON)
	}
	return string(f)
}

// Write encodes events in a download format. FormatJSON is not a download
// format and is rejected.
func Write(w io.Writer, f Format, events []domain.EventRecord, stats domain.Statistics) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, events)
	case FormatXLSX:
		return WriteXLSX(w, events, stats)
	case FormatParquet:
		return WriteParquet(w, events)
	case FormatGeoJSON:
		return WriteGeoJSON(w, events)
	default:
		return fmt.Errorf("format %q is not a download format", f)
	}
}

// row is one event in column order. Unknown values are empty strings.
func row(e domain.EventRecord) []string {
	return []string{
		e.ID,
		e.Time.UTC().Format(TimeLayout),
		formatOptional(e.Magnitude),
		e.Place,
		formatFloat(e.Location.Lat),
		formatFloat(e.Location.Lon),
		formatOptional(e.Depth),
		e.Alert,
		e.DetailURL,
	}
}

func formatOptional(o domain.Optional) string {
	if v, ok := o.Get(); ok {
		return formatFloat(v)
	}
	return ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
