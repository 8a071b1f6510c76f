// Package history reads the printed-label log and groups it into print
// sessions for audit and bulk reprint.
package history

import (
	"strings"
	"time"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

type PrinterRef struct {
	Name string `json:"name"`
}

type Details struct {
	PrintedAt   *time.Time `json:"printedAt,omitempty"`
	PrinterUsed PrinterRef `json:"printerUsed"`
	ItemID      string     `json:"itemId,omitempty"`
	ItemName    string     `json:"itemName"`
	Quantity    int        `json:"quantity"`
	LabelType   string     `json:"labelType,omitempty"`
	Initial     string     `json:"initial,omitempty"`
	LabelHeight int        `json:"labelHeight,omitempty"`
}

// Entry is one line of the printed-label log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Details   Details   `json:"details"`
}

// PrintedAt is the batch timestamp, falling back to the log timestamp for
// entries written without one.
func (e Entry) PrintedAt() time.Time {
	if e.Details.PrintedAt != nil && !e.Details.PrintedAt.IsZero() {
		return *e.Details.PrintedAt
	}
	return e.Timestamp
}

// NewEntry records a successful print. All items of one batch share printedAt.
func NewEntry(item model.PrintableItem, printer string, printedAt time.Time, initial string, heightMM int) Entry {
	at := printedAt
	labelType := string(item.LabelKind)
	if labelType == "" {
		labelType = string(item.Variant)
	}
	return Entry{
		Timestamp: time.Now(),
		Details: Details{
			PrintedAt:   &at,
			PrinterUsed: PrinterRef{Name: printer},
			ItemID:      item.ID,
			ItemName:    item.Name,
			Quantity:    item.Quantity,
			LabelType:   labelType,
			Initial:     strings.ToUpper(strings.TrimSpace(initial)),
			LabelHeight: heightMM,
		},
	}
}
