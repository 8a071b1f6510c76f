package stream_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label/raster"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label/stream"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

var terms = []string{"Butter", "Flour", "Salt", "Milk", "Gluten"}

func TestRasterAndStreamCarrySameContent(t *testing.T) {
	catalog := model.NewCatalog([]model.CatalogIngredient{
		{Name: "Butter", Allergens: []string{"Milk"}},
		{Name: "Flour", Allergens: []string{"Gluten"}},
		{Name: "Salt"},
	}, nil)
	ingredients := []string{"Butter", "Flour", "Salt"}

	items := map[string]model.PrintableItem{
		"menu":       {Name: "Toast", Variant: model.VariantMenu, LabelKind: model.LabelKindCooked, Quantity: 1, IngredientNames: ingredients},
		"ppds":       {Name: "Toast", Variant: model.VariantMenu, LabelKind: model.LabelKindPPDS, Quantity: 1, IngredientNames: ingredients},
		"ingredient": {Name: "Dough", Variant: model.VariantIngredient, Quantity: 1, AllergenNames: []string{"Milk", "Gluten"}},
		"fallback":   {Name: "Toast", Variant: model.VariantMenu, Quantity: 1, IngredientNames: ingredients},
	}

	for _, height := range label.SupportedHeights() {
		cfg, err := label.ConfigFor(height)
		require.NoError(t, err)
		for name, item := range items {
			content := label.Compose(item, catalog, cfg, label.Options{Initial: "ab"})

			rasterText := strings.ToLower(strings.Join(raster.Build(content, cfg).Texts(), "\n"))
			lines, err := stream.Decode(stream.Render(content, cfg))
			require.NoError(t, err)
			streamText := strings.ToLower(strings.Join(stream.Text(lines), "\n"))

			for _, term := range terms {
				term = strings.ToLower(term)
				assert.Equal(t, strings.Contains(rasterText, term), strings.Contains(streamText, term),
					"%s at %dmm: %q", name, height, term)
			}
		}
	}
}
