package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

// decodeFile reads YAML or JSON, chosen by extension.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, v)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .yaml, .yml, .json)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// LoadCatalog reads the ingredient and menu catalog.
func LoadCatalog(path string) (*model.Catalog, error) {
	if path == "" {
		return model.NewCatalog(nil, nil), nil
	}
	var c model.Catalog
	if err := decodeFile(path, &c); err != nil {
		return nil, err
	}
	return model.NewCatalog(c.Ingredients, c.Menu), nil
}

type queueFile struct {
	Items []model.PrintableItem `json:"items" yaml:"items"`
}

// LoadQueue reads a print queue. Items missing an id get their position.
func LoadQueue(path string) ([]model.PrintableItem, error) {
	var q queueFile
	if err := decodeFile(path, &q); err != nil {
		return nil, err
	}
	for i := range q.Items {
		if q.Items[i].ID == "" {
			q.Items[i].ID = fmt.Sprint(i + 1)
		}
	}
	return q.Items, nil
}
