package export

import (
	"fmt"
	"io"
	"os"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/couchcryptid/quake-explorer/internal/domain"
)

// parquetRecord is the Parquet schema; it mirrors Columns.
type parquetRecord struct {
	ID         string   `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
	TimeUTC    string   `parquet:"name=time_utc, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
	Magnitude  *float64 `parquet:"name=magnitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Place      string   `parquet:"name=place, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
	Latitude   float64  `parquet:"name=latitude, type=DOUBLE"`
	Longitude  float64  `parquet:"name=longitude, type=DOUBLE"`
	DepthKM    *float64 `parquet:"name=depth_km, type=DOUBLE, repetitiontype=OPTIONAL"`
	AlertLevel *string  `parquet:"name=alert_level, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	URL        string   `parquet:"name=url, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
}

func toParquetRecord(e domain.EventRecord) parquetRecord {
	rec := parquetRecord{
		ID:        e.ID,
		TimeUTC:   e.Time.UTC().Format(TimeLayout),
		Place:     e.Place,
		Latitude:  e.Location.Lat,
		Longitude: e.Location.Lon,
		URL:       e.DetailURL,
	}
	if v, ok := e.Magnitude.Get(); ok {
		rec.Magnitude = &v
	}
	if v, ok := e.Depth.Get(); ok {
		rec.DepthKM = &v
	}
	if e.Alert != "" {
		alert := e.Alert
		rec.AlertLevel = &alert
	}
	return rec
}

// WriteParquetFile writes events to a ZSTD-compressed Parquet file at path.
func WriteParquetFile(path string, events []domain.EventRecord) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(parquetRecord), 4)
	if err != nil {
		return fmt.Errorf("init parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	for _, e := range events {
		if err := pw.Write(toParquetRecord(e)); err != nil {
			return fmt.Errorf("write parquet row %s: %w", e.ID, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet: %w", err)
	}
	return nil
}

// WriteParquet writes events as Parquet to w. The footer needs a complete
// file, so the data is staged in a temporary file first.
func WriteParquet(w io.Writer, events []domain.EventRecord) error {
	tmp, err := os.CreateTemp("", "quake-export-*.parquet")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	if err := WriteParquetFile(path, events); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open parquet file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy parquet: %w", err)
	}
	return nil
}
