package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/couchcryptid/quake-explorer/internal/domain"
)

// WriteCSV writes a header row and one row per event.
func WriteCSV(w io.Writer, events []domain.EventRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range events {
		if err := cw.Write(row(e)); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
