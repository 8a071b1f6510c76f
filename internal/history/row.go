package history

import "time"

// entryRow is the Parquet layout of a log entry. Times are Unix nanoseconds.
type entryRow struct {
	Timestamp   int64  `parquet:"timestamp"`
	PrintedAt   int64  `parquet:"printed_at"`
	Printer     string `parquet:"printer"`
	ItemID      string `parquet:"item_id"`
	ItemName    string `parquet:"item_name"`
	Quantity    int64  `parquet:"quantity"`
	LabelType   string `parquet:"label_type"`
	Initial     string `parquet:"initial"`
	LabelHeight int64  `parquet:"label_height"`
}

func toRow(e Entry) entryRow {
	row := entryRow{
		Timestamp:   e.Timestamp.UnixNano(),
		Printer:     e.Details.PrinterUsed.Name,
		ItemID:      e.Details.ItemID,
		ItemName:    e.Details.ItemName,
		Quantity:    int64(e.Details.Quantity),
		LabelType:   e.Details.LabelType,
		Initial:     e.Details.Initial,
		LabelHeight: int64(e.Details.LabelHeight),
	}
	if e.Details.PrintedAt != nil {
		row.PrintedAt = e.Details.PrintedAt.UnixNano()
	}
	return row
}

func fromRow(row entryRow) Entry {
	e := Entry{
		Timestamp: time.Unix(0, row.Timestamp).UTC(),
		Details: Details{
			PrinterUsed: PrinterRef{Name: row.Printer},
			ItemID:      row.ItemID,
			ItemName:    row.ItemName,
			Quantity:    int(row.Quantity),
			LabelType:   row.LabelType,
			Initial:     row.Initial,
			LabelHeight: int(row.LabelHeight),
		},
	}
	if row.PrintedAt != 0 {
		at := time.Unix(0, row.PrintedAt).UTC()
		e.Details.PrintedAt = &at
	}
	return e
}

// sessionRow is the Parquet layout of an exported session.
type sessionRow struct {
	ID          string   `parquet:"id"`
	Timestamp   int64    `parquet:"timestamp"`
	Printer     string   `parquet:"printer"`
	Initial     string   `parquet:"initial"`
	LabelHeight int64    `parquet:"label_height"`
	Items       []string `parquet:"items,list"`
	ItemCount   int64    `parquet:"item_count"`
	Quantity    int64    `parquet:"quantity"`
	LabelKinds  []string `parquet:"label_kinds,list"`
}
