package batch

import (
	"encoding/csv"
	"fmt"
	"io"
)

var csvHeader = []string{"name", "address", "city", "state", "zip", "status", "group", "struck"}

// WriteCSV writes the records one per row, with their group number (1-based)
// and whether that group is struck.
func WriteCSV(w io.Writer, records []Record, strikes []bool) error {
	strikes = ReconcileStrikes(len(records), strikes)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range records {
		g := GroupOf(i)
		row := []string{r.Name, r.Address, r.City, r.State, r.Zip, r.Status, fmt.Sprint(g + 1), fmt.Sprint(strikes[g])}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
