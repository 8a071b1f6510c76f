package history

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// ExportSessions writes one Parquet row per session.
func ExportSessions(path string, sessions []Session) error {
	rows := make([]sessionRow, len(sessions))
	for i, s := range sessions {
		rows[i] = sessionRow{
			ID:          s.ID,
			Timestamp:   s.Timestamp.UnixNano(),
			Printer:     s.Printer,
			Initial:     s.Initial,
			LabelHeight: int64(s.LabelHeight),
			Items:       s.ItemNames,
			ItemCount:   int64(s.ItemCount()),
			Quantity:    int64(s.Quantity),
			LabelKinds:  s.LabelKinds,
		}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to export sessions: %w", err)
	}
	return nil
}

// ExportEntries writes the raw log as Parquet, readable by Load.
func ExportEntries(path string, entries []Entry) error {
	rows := make([]entryRow, len(entries))
	for i, e := range entries {
		rows[i] = toRow(e)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to export print log: %w", err)
	}
	return nil
}
