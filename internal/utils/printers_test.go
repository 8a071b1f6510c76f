package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

func TestLoadPrintersMissingFile(t *testing.T) {
	state, err := LoadPrinters(filepath.Join(t.TempDir(), "printers.json"))
	require.NoError(t, err)
	assert.Empty(t, state.Selected)
	assert.Empty(t, state.Known)
}

func TestSavePrintersMergesByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "printers.json")

	require.NoError(t, SavePrinters(path, model.PrinterState{
		Selected: "Prep",
		Known: []model.PrinterDescriptor{
			{Name: "Prep", State: model.PrinterStateReady},
			{Name: "Pass", State: model.PrinterStateReady, IsDefault: true},
		},
	}))
	require.NoError(t, SavePrinters(path, model.PrinterState{
		Selected: "Bar",
		Known: []model.PrinterDescriptor{
			{Name: "Pass", State: model.PrinterStateReady},
			{Name: "Bar", State: model.PrinterStatePaired},
		},
	}))

	state, err := LoadPrinters(path)
	require.NoError(t, err)
	assert.Equal(t, "Bar", state.Selected)
	require.Len(t, state.Known, 3)
	assert.Equal(t, "Prep", state.Known[0].Name)
	assert.Equal(t, "Pass", state.Known[1].Name)
	assert.False(t, state.Known[1].IsDefault)
	assert.Equal(t, "Bar", state.Known[2].Name)
}

func TestPrintersPath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b", "printers.json"), PrintersPath(filepath.Join("a", "b", "config.yaml")))
}
