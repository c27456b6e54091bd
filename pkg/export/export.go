// Package export renders dispatch lists for the command line.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kilianp07/smartcharge/core/model"
)

// WriteJSON writes the dispatches to w in JSON format.
func WriteJSON(w io.Writer, records []model.DispatchRecord) error {
	if records == nil {
		records = []model.DispatchRecord{}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteCSV writes the dispatches to w in CSV format with a header row.
func WriteCSV(w io.Writer, records []model.DispatchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"start", "end", "energy_delta_kwh", "source", "location"}); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.Start.UTC().Format(time.RFC3339),
			r.End.UTC().Format(time.RFC3339),
			r.EnergyDeltaKWh.String(),
			r.Source,
			r.Location,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write dispatches on format, "json" or "csv".
func Write(w io.Writer, format string, records []model.DispatchRecord) error {
	switch format {
	case "json":
		return WriteJSON(w, records)
	case "csv":
		return WriteCSV(w, records)
	}
	return fmt.Errorf("unsupported export format %q", format)
}
