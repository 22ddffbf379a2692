package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/quake-explorer/internal/domain"
)

const (
	eventsSheet  = "Earthquakes"
	summarySheet = "Summary"
)

// WriteXLSX writes a workbook with an events sheet using the shared columns
// and a summary sheet holding the statistics. Numeric columns are stored as
// numbers; unknown values leave the cell empty.
func WriteXLSX(w io.Writer, events []domain.EventRecord, stats domain.Statistics) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", eventsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for col, name := range Columns {
		if err := setCell(f, eventsSheet, col+1, 1, name); err != nil {
			return err
		}
	}
	for i, e := range events {
		if err := writeEventRow(f, i+2, e); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	for i, kv := range summaryRows(stats) {
		if err := setCell(f, summarySheet, 1, i+1, kv[0]); err != nil {
			return err
		}
		if kv[1] == nil {
			continue
		}
		if err := setCell(f, summarySheet, 2, i+1, kv[1]); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeEventRow(f *excelize.File, r int, e domain.EventRecord) error {
	values := []any{
		e.ID,
		e.Time.UTC().Format(TimeLayout),
		optionalValue(e.Magnitude),
		e.Place,
		e.Location.Lat,
		e.Location.Lon,
		optionalValue(e.Depth),
		e.Alert,
		e.DetailURL,
	}
	for col, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if err := setCell(f, eventsSheet, col+1, r, v); err != nil {
			return err
		}
	}
	return nil
}

func summaryRows(s domain.Statistics) [][2]any {
	rows := [][2]any{
		{"count", s.Count},
		{"magnitude_count", s.MagnitudeCount},
		{"mean_magnitude", optionalValue(s.MeanMagnitude)},
		{"max_magnitude", optionalValue(s.MaxMagnitude)},
		{"max_depth_km", optionalValue(s.MaxDepth)},
		{"max_magnitude_event", nil},
		{"max_depth_event", nil},
	}
	if s.MaxMagnitudeEvent != nil {
		rows[5][1] = s.MaxMagnitudeEvent.ID
	}
	if s.MaxDepthEvent != nil {
		rows[6][1] = s.MaxDepthEvent.ID
	}
	return rows
}

func optionalValue(o domain.Optional) any {
	if v, ok := o.Get(); ok {
		return v
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
	}
	return nil
}
