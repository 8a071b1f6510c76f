package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

// LoadPrinters reads the printer state file. A missing file is an empty state.
func LoadPrinters(path string) (model.PrinterState, error) {
	var state model.PrinterState
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, err
	}
	err = json.Unmarshal(data, &state)
	return state, err
}

// SavePrinters writes the selection and merges the known printers into those
// already on file, keyed by name. Entries seen again are refreshed.
func SavePrinters(path string, state model.PrinterState) error {
	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	existing, err := LoadPrinters(path)
	if err != nil {
		return fmt.Errorf("failed to read existing printers file: %v", err)
	}

	index := make(map[string]int, len(existing.Known))
	for i, p := range existing.Known {
		index[p.Name] = i
	}
	for _, p := range state.Known {
		if i, ok := index[p.Name]; ok {
			existing.Known[i] = p
			continue
		}
		index[p.Name] = len(existing.Known)
		existing.Known = append(existing.Known, p)
	}
	existing.Selected = state.Selected

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
