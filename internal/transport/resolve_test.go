package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

func printers(names ...string) []model.PrinterDescriptor {
	out := make([]model.PrinterDescriptor, len(names))
	for i, n := range names {
		out[i] = model.PrinterDescriptor{Name: n}
	}
	return out
}

func TestResolvePrinter(t *testing.T) {
	tests := []struct {
		name      string
		selected  string
		def       string
		available []model.PrinterDescriptor
		want      string
		err       error
	}{
		{name: "default when nothing selected", def: "A", available: printers("B", "A"), want: "A"},
		{name: "first when selection absent", selected: "X", available: printers("B"), want: "B"},
		{name: "nothing available", selected: "A", def: "A", err: model.ErrNoUsablePrinter},
		{name: "selection wins", selected: "B", def: "A", available: printers("A", "B"), want: "B"},
		{name: "stale default skipped", def: "Gone", available: printers("C", "D"), want: "C"},
		{name: "fallback never chosen", available: printers("fallback", "C"), want: "C"},
		{name: "fallback selected", selected: "fallback", def: "fallback", available: printers("fallback", "C"), want: "C"},
		{name: "only fallback", available: printers("fallback"), err: model.ErrNoUsablePrinter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePrinter(tt.selected, tt.def, tt.available)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
