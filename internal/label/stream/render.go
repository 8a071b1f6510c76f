package stream

import (
	"strings"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label"
)

type writer struct {
	cfg label.LayoutConfig
	b   strings.Builder
}

// Render encodes label content as an ESC/POS control stream. The printer wraps
// long lines itself, so only section breaks and two-column rows are laid out
// here.
func Render(c label.Content, cfg label.LayoutConfig) string {
	w := &writer{cfg: cfg}
	w.raw(FontB)
	w.name(c.Name)

	switch c.Variant {
	case label.VariantIngredient:
		w.ingredient(c)
	case label.VariantPPDS:
		w.ppds(c)
	default:
		w.other(c)
	}

	if cfg.StreamMode == label.StreamExtended {
		w.raw(LF)
	}
	return w.b.String()
}

func (w *writer) raw(s string) {
	w.b.WriteString(s)
}

func (w *writer) line(s string) {
	w.b.WriteString(s)
	w.b.WriteString(LF)
}

// gap separates sections. Compact labels have no room for blank lines.
func (w *writer) gap() {
	if w.cfg.StreamMode == label.StreamExtended {
		w.raw(LF)
	}
}

func (w *writer) name(name string) {
	size := SizeTall
	if w.cfg.StreamMode == label.StreamExtended {
		size = SizeLarge
	}
	w.raw(AlignCenter + size + BoldOn)
	w.line(name)
	w.raw(BoldOff + SizeNormal + AlignLeft)
	w.gap()
}

func (w *writer) columns(left, right string) {
	if right == "" {
		w.line(left)
		return
	}
	w.line(PadColumns(left, right, w.cfg.StreamColumns))
}

// fits reports whether the full ingredient list is printed. Longer lists are
// replaced by the allergen summary.
func (w *writer) fits(c label.Content) bool {
	return len(c.Ingredients) <= w.cfg.StreamFitThreshold
}

func (w *writer) ingredient(c label.Content) {
	w.columns("Printed: "+c.PrintedOn, "Expiry: "+c.Expiry)
	if tag := c.InitialTag(); tag != "" {
		w.line(tag)
	}
	if len(c.Allergens) == 0 {
		return
	}
	w.gap()
	w.raw(AlignCenter + InvertOn + BoldOn)
	w.line(" CONTAINS ALLERGENS ")
	w.raw(BoldOff + InvertOff)
	w.line(strings.ToUpper(c.AllergenList()))
	w.raw(AlignLeft)
}

func (w *writer) ppds(c label.Content) {
	w.columns("Best before: "+c.Expiry, c.InitialTag())
	w.gap()
	if !w.fits(c) {
		w.allergens(c)
		return
	}
	parts := make([]string, len(c.Ingredients))
	for i, ing := range c.Ingredients {
		if ing.Allergenic {
			parts[i] = BoldOn + ing.Highlighted() + BoldOff
			continue
		}
		parts[i] = ing.Name
	}
	w.line("Ingredients: " + strings.Join(parts, ", "))
}

func (w *writer) other(c label.Content) {
	w.columns("Printed: "+c.PrintedOn, "Expiry: "+c.Expiry)
	if c.LabelKind != "" || c.Initial != "" {
		w.columns(c.LabelKind, c.InitialTag())
	}
	switch {
	case c.Variant == label.VariantFIFO:
		return
	case c.Variant == label.VariantFallback && w.fits(c):
		w.gap()
		w.fallback(c)
	default:
		w.gap()
		w.allergens(c)
	}
}

func (w *writer) fallback(c label.Content) {
	if len(c.Ingredients) > 0 {
		w.line("Ingredients: " + strings.Join(c.IngredientNames(), ", "))
	}
	allergenic := c.AllergenicIngredients()
	if len(allergenic) == 0 {
		return
	}
	parts := make([]string, len(allergenic))
	for i, ing := range allergenic {
		parts[i] = ing.Highlighted()
	}
	w.line("Allergens: " + BoldOn + strings.Join(parts, ", ") + BoldOff)
}

func (w *writer) allergens(c label.Content) {
	if len(c.Allergens) == 0 {
		w.line("Contains: No allergens")
		return
	}
	w.line("Contains: " + BoldOn + c.AllergenList() + BoldOff)
}
