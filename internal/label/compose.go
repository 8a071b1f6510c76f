package label

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

const (
	// FIFOName is the sentinel item name that prints the first-in/first-out marker.
	FIFOName   = "FIFO"
	Ellipsis   = "…"
	DateLayout = "02/01/2006"
)

// Variant is the layout chosen for an item, first match wins.
type Variant int

const (
	VariantFIFO Variant = iota
	VariantMenu
	VariantPPDS
	VariantIngredient
	VariantFallback
)

func (v Variant) String() string {
	switch v {
	case VariantFIFO:
		return "fifo"
	case VariantMenu:
		return "menu"
	case VariantPPDS:
		return "ppds"
	case VariantIngredient:
		return "ingredient"
	default:
		return "fallback"
	}
}

// Ingredient is one entry of a menu item's ingredient list.
type Ingredient struct {
	Name       string
	Allergenic bool
	Allergens  []string
}

// Highlighted renders allergenic ingredients as [NAME].
func (i Ingredient) Highlighted() string {
	if !i.Allergenic {
		return i.Name
	}
	return "[" + strings.ToUpper(i.Name) + "]"
}

type Options struct {
	Initial string
}

// Content is the information a label carries, independent of output encoding.
type Content struct {
	Variant      Variant
	Name         string
	NameFontSize float64
	PrintedOn    string
	Expiry       string
	Initial      string
	LabelKind    string
	Allergens    []string
	Ingredients  []Ingredient
}

// Compose derives label content from an item and a catalog snapshot. It is pure:
// the same inputs always produce the same content.
func Compose(item model.PrintableItem, catalog *model.Catalog, cfg LayoutConfig, opts Options) Content {
	name := strings.TrimSpace(item.Name)
	c := Content{
		Variant:      SelectVariant(item),
		Name:         Truncate(name, cfg.MaxNameChars),
		NameFontSize: NameFontSize(name, cfg),
		PrintedOn:    formatDate(item.PrintedOn),
		Expiry:       formatDate(item.ExpiryDate),
		Initial:      strings.ToUpper(strings.TrimSpace(opts.Initial)),
		LabelKind:    strings.ToUpper(string(item.LabelKind)),
	}

	if item.Variant == model.VariantIngredient {
		c.Allergens = uniqueSorted(item.AllergenNames)
		return c
	}

	var union []string
	for _, raw := range item.IngredientNames {
		ingName := strings.TrimSpace(raw)
		if ingName == "" {
			continue
		}
		ing := Ingredient{Name: ingName}
		if entry, ok := catalog.Ingredient(ingName); ok && len(entry.Allergens) > 0 {
			ing.Allergens = uniqueSorted(entry.Allergens)
			ing.Allergenic = true
			union = append(union, entry.Allergens...)
		}
		c.Ingredients = append(c.Ingredients, ing)
	}
	c.Allergens = uniqueSorted(union)
	return c
}

// SelectVariant applies the variant order: FIFO sentinel, standard menu kinds,
// PPDS, ingredient, then the fallback layout.
func SelectVariant(item model.PrintableItem) Variant {
	if strings.TrimSpace(item.Name) == FIFOName {
		return VariantFIFO
	}
	switch item.Variant {
	case model.VariantMenu:
		switch item.LabelKind {
		case model.LabelKindCooked, model.LabelKindPrep, model.LabelKindDefault:
			return VariantMenu
		case model.LabelKindPPDS:
			return VariantPPDS
		}
	case model.VariantIngredient:
		return VariantIngredient
	}
	return VariantFallback
}

// NameFontSize shrinks the product name by a fixed step for two words and a
// larger step for three or more, never going below the configured floor.
func NameFontSize(name string, cfg LayoutConfig) float64 {
	size := cfg.NameFontSize
	switch words := len(strings.Fields(name)); {
	case words == 2:
		size -= cfg.NameStepTwo
	case words >= 3:
		size -= cfg.NameStepThree
	}
	if size < cfg.NameFontFloor {
		size = cfg.NameFontFloor
	}
	return size
}

// Truncate caps s at max runes, ending in an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max-1]), " ") + Ellipsis
}

// Limit returns the first max entries and how many were left out.
func Limit[T any](list []T, max int) ([]T, int) {
	if max < 0 || len(list) <= max {
		return list, 0
	}
	return list[:max], len(list) - max
}

// MoreMarker is appended to a truncated list.
func MoreMarker(hidden int) string {
	return fmt.Sprintf("+%d more", hidden)
}

// AllergenicIngredients is the subset of ingredients that carry allergens.
func (c Content) AllergenicIngredients() []Ingredient {
	var out []Ingredient
	for _, ing := range c.Ingredients {
		if ing.Allergenic {
			out = append(out, ing)
		}
	}
	return out
}

func (c Content) IngredientNames() []string {
	names := make([]string, len(c.Ingredients))
	for i, ing := range c.Ingredients {
		names[i] = ing.Name
	}
	return names
}

// InitialTag is the initials sigil, empty when no initials were given.
func (c Content) InitialTag() string {
	if c.Initial == "" {
		return ""
	}
	return "@" + c.Initial
}

// AllergenList joins the allergens for a "Contains:" line.
func (c Content) AllergenList() string {
	return strings.Join(c.Allergens, ", ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(DateLayout)
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}
