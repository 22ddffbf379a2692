package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/quake-explorer/internal/domain"
)

func sampleEvents() []domain.EventRecord {
	return []domain.EventRecord{
		{
			ID:        "us6000jllz",
			Time:      time.Date(2023, 2, 6, 1, 17, 34, 0, time.UTC),
			Location:  domain.Point{Lat: 37.2256, Lon: 37.0143},
			Depth:     domain.Known(10),
			Magnitude: domain.Known(7.8),
			Place:     "Pazarcik, Turkey",
			DetailURL: "https://earthquake.usgs.gov/earthquakes/eventpage/us6000jllz",
			Alert:     "red",
		},
		{
			ID:        "us6000jlqa",
			Time:      time.Date(2023, 2, 6, 10, 24, 48, 0, time.UTC),
			Location:  domain.Point{Lat: 38.011, Lon: 37.196},
			Depth:     domain.Unknown(),
			Magnitude: domain.Unknown(),
			Place:     "Elbistan, Turkey",
			DetailURL: "https://earthquake.usgs.gov/earthquakes/eventpage/us6000jlqa",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"CSV", FormatCSV, false},
		{" xlsx ", FormatXLSX, false},
		{"parquet", FormatParquet, false},
		{"geojson", FormatGeoJSON, false},
		{"xls", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_ContentTypeAndExtension(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, "application/geo+json", FormatGeoJSON.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "xlsx", FormatXLSX.Extension())
	assert.Equal(t, "json", Format("").Extension())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleEvents()))

	want := "id,time_utc,magnitude,place,latitude,longitude,depth_km,alert_level,url\n" +
		"us6000jllz,2023-02-06 01:17:34,7.8,\"Pazarcik, Turkey\",37.2256,37.0143,10,red,https://earthquake.usgs.gov/earthquakes/eventpage/us6000jllz\n" +
		"us6000jlqa,2023-02-06 10:24:48,,\"Elbistan, Turkey\",38.011,37.196,,,https://earthquake.usgs.gov/earthquakes/eventpage/us6000jlqa\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "id,time_utc,magnitude,place,latitude,longitude,depth_km,alert_level,url\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	events := sampleEvents()
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, events, domain.Summarize(events)))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(eventsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "us6000jllz", rows[1][0])
	assert.Equal(t, "2023-02-06 01:17:34", rows[1][1])
	assert.Equal(t, "7.8", rows[1][2])
	assert.Equal(t, "red", rows[1][7])
	assert.Equal(t, "us6000jlqa", rows[2][0])
	assert.Empty(t, rows[2][2], "unknown magnitude leaves the cell empty")
	assert.Empty(t, rows[2][6], "unknown depth leaves the cell empty")

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.NotEmpty(t, summary)
	assert.Equal(t, []string{"count", "2"}, summary[0])
	assert.Equal(t, []string{"max_magnitude_event", "us6000jllz"}, summary[5])
}

func TestWriteParquet_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.parquet")
	require.NoError(t, WriteParquetFile(path, sampleEvents()))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(parquetRecord), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	require.Equal(t, 2, n)
	rows := make([]parquetRecord, n)
	require.NoError(t, pr.Read(&rows))

	assert.Equal(t, "us6000jllz", rows[0].ID)
	require.NotNil(t, rows[0].Magnitude)
	assert.InDelta(t, 7.8, *rows[0].Magnitude, 1e-9)
	require.NotNil(t, rows[0].AlertLevel)
	assert.Equal(t, "red", *rows[0].AlertLevel)
	assert.Nil(t, rows[1].Magnitude)
	assert.Nil(t, rows[1].DepthKM)
	assert.Nil(t, rows[1].AlertLevel)
}

func TestWriteParquet_ToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, sampleEvents()))
	require.Greater(t, buf.Len(), 8)
	// Parquet files begin and end with the magic bytes "PAR1".
	assert.Equal(t, "PAR1", buf.String()[:4])
	assert.Equal(t, "PAR1", buf.String()[buf.Len()-4:])
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sampleEvents()))

	var fc domain.FeatureCollection
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	require.Len(t, fc.Features, 2)

	// The output decodes with the same rules as an upstream response.
	rec, err := domain.NormalizeFeature(fc.Features[0])
	require.NoError(t, err)
	assert.Equal(t, "us6000jllz", rec.ID)
	assert.Equal(t, time.Date(2023, 2, 6, 1, 17, 34, 0, time.UTC), rec.Time)
	assert.Equal(t, domain.Point{Lat: 37.2256, Lon: 37.0143}, rec.Location)
	assert.Equal(t, domain.Known(10), rec.Depth)

	rec, err = domain.NormalizeFeature(fc.Features[1])
	require.NoError(t, err)
	assert.False(t, rec.Magnitude.IsKnown())
	assert.False(t, rec.Depth.IsKnown())
}

func TestWrite_RejectsJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, FormatJSON, nil, domain.Statistics{})
	require.Error(t, err)
}
