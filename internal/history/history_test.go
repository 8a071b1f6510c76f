package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

var base = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

func entry(at time.Time, printer, item string, qty int, kind string) Entry {
	printedAt := at
	return Entry{
		Timestamp: at.Add(time.Second),
		Details: Details{
			PrintedAt:   &printedAt,
			PrinterUsed: PrinterRef{Name: printer},
			ItemName:    item,
			Quantity:    qty,
			LabelType:   kind,
			Initial:     "AB",
			LabelHeight: 31,
		},
	}
}

func TestGroupMergesSameTimestampAndPrinter(t *testing.T) {
	sessions := Group([]Entry{
		entry(base, "Pass", "Soup", 2, "cooked"),
		entry(base, "Pass", "Bread", 3, "prep"),
	})
	require.Len(t, sessions, 1)

	s := sessions[0]
	assert.Equal(t, 5, s.Quantity)
	assert.Equal(t, []string{"Soup", "Bread"}, s.ItemNames)
	assert.Equal(t, []string{"COOKED", "PREP"}, s.LabelKinds)
	assert.Equal(t, "Pass", s.Printer)
	assert.Equal(t, "AB", s.Initial)
	assert.Equal(t, 2, s.ItemCount())
}

func TestGroupNeverMergesAcrossPrinters(t *testing.T) {
	sessions := Group([]Entry{
		entry(base, "Pass", "Soup", 1, "cooked"),
		entry(base, "Prep", "Soup", 1, "cooked"),
	})
	require.Len(t, sessions, 2)
	assert.NotEqual(t, sessions[0].ID, sessions[1].ID)
}

func TestGroupIsExactNotWindowed(t *testing.T) {
	sessions := Group([]Entry{
		entry(base, "Pass", "Soup", 1, "cooked"),
		entry(base.Add(time.Millisecond), "Pass", "Soup", 1, "cooked"),
	})
	assert.Len(t, sessions, 2)
}

func TestGroupSortsNewestFirst(t *testing.T) {
	sessions := Group([]Entry{
		entry(base, "Pass", "A", 1, "cooked"),
		entry(base.Add(2*time.Hour), "Pass", "C", 1, "cooked"),
		entry(base.Add(time.Hour), "Pass", "B", 1, "cooked"),
	})
	require.Len(t, sessions, 3)
	assert.Equal(t, []string{"C"}, sessions[0].ItemNames)
	assert.Equal(t, []string{"B"}, sessions[1].ItemNames)
	assert.Equal(t, []string{"A"}, sessions[2].ItemNames)
}

func TestGroupIsIdempotent(t *testing.T) {
	entries := []Entry{
		entry(base, "Pass", "Soup", 1, "cooked"),
		entry(base, "Pass", "Bread", 1, "prep"),
		entry(base.Add(time.Hour), "Prep", "Soup", 1, "cooked"),
	}
	assert.Equal(t, Group(entries), Group(entries))
}

func TestGroupFallsBackToLogTimestamp(t *testing.T) {
	e := entry(base, "Pass", "Soup", 1, "cooked")
	e.Details.PrintedAt = nil
	sessions := Group([]Entry{e})
	require.Len(t, sessions, 1)
	assert.Equal(t, e.Timestamp, sessions[0].Timestamp)
}

func TestFind(t *testing.T) {
	sessions := Group([]Entry{
		entry(base, "Pass", "Soup", 1, "cooked"),
		entry(base, "Prep", "Soup", 1, "cooked"),
	})
	s, err := Find(sessions, sessions[1].ID)
	require.NoError(t, err)
	assert.Equal(t, sessions[1].Printer, s.Printer)

	_, err = Find(sessions, "nope")
	assert.Error(t, err)
}

func TestRecorderAndLoadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "printed.jsonl")
	rec := NewRecorder(path)
	require.NoError(t, rec.Append(entry(base, "Pass", "Soup", 2, "cooked")))
	require.NoError(t, rec.Append(entry(base, "Pass", "Bread", 1, "prep")))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Bread", entries[1].Details.ItemName)
	assert.True(t, base.Equal(entries[0].PrintedAt()))

	sessions := Group(entries)
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].Quantity)
}

func TestLoadJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printed.json")
	data := `[{"timestamp":"2026-04-10T09:30:01Z","details":{"printedAt":"2026-04-10T09:30:00Z","printerUsed":{"name":"Pass"},"itemName":"Soup","quantity":2,"labelType":"cooked"}}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Pass", entries[0].Details.PrinterUsed.Name)
	assert.True(t, base.Equal(entries[0].PrintedAt()))
}

func TestLoadMissingFile(t *testing.T) {
	entries, err := Load(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = Load("log.csv")
	assert.Error(t, err)
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printed.parquet")
	in := []Entry{
		entry(base, "Pass", "Soup", 2, "cooked"),
		entry(base, "Pass", "Bread", 1, "prep"),
	}
	require.NoError(t, ExportEntries(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, Group(in)[0].ID, Group(out)[0].ID)
	assert.Equal(t, 3, Group(out)[0].Quantity)
}

func TestExportSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.parquet")
	sessions := Group([]Entry{entry(base, "Pass", "Soup", 2, "cooked")})
	require.NoError(t, ExportSessions(path, sessions))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestReprintQueue(t *testing.T) {
	catalog := model.NewCatalog(nil, []model.CatalogMenuItem{{Name: "Soup", LabelKind: model.LabelKindCooked}})
	now := base.Add(24 * time.Hour)
	sessions := Group([]Entry{
		entry(base, "Pass", "Soup", 2, "cooked"),
		entry(base, "Pass", "Retired dish", 1, "cooked"),
	})

	items, missing := ReprintQueue(sessions[0], func(e Entry) (model.PrintableItem, bool) {
		return catalog.QueueItem(e.Details.ItemName, e.Details.Quantity, now)
	})
	require.Len(t, items, 1)
	assert.Equal(t, "Soup", items[0].Name)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, now, items[0].PrintedOn)
	assert.Equal(t, []string{"Retired dish"}, missing)
}

func TestNewEntry(t *testing.T) {
	item := model.PrintableItem{ID: "7", Name: "Butter", Variant: model.VariantIngredient, Quantity: 4}
	e := NewEntry(item, "Pass", base, " jd ", 80)
	assert.Equal(t, "ingredient", e.Details.LabelType)
	assert.Equal(t, "JD", e.Details.Initial)
	assert.Equal(t, 80, e.Details.LabelHeight)
	assert.Equal(t, base, e.PrintedAt())
}
