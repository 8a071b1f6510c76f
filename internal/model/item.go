package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// --- Print Queue Structures ---

type Variant string

const (
	VariantIngredient Variant = "ingredient"
	VariantMenu       Variant = "menu"
)

type LabelKind string

const (
	LabelKindCooked  LabelKind = "cooked"
	LabelKindPrep    LabelKind = "prep"
	LabelKindPPDS    LabelKind = "ppds"
	LabelKindDefault LabelKind = "default"
)

// PrintableItem is one entry of the print queue. Menu items carry ingredient
// names and derive allergens from the catalog; ingredient items carry their own.
type PrintableItem struct {
	ID              string    `json:"id" yaml:"id"`
	Variant         Variant   `json:"variant" yaml:"variant"`
	Name            string    `json:"name" yaml:"name"`
	Quantity        int       `json:"quantity" yaml:"quantity"`
	PrintedOn       time.Time `json:"printedOn" yaml:"printedOn"`
	ExpiryDate      time.Time `json:"expiryDate" yaml:"expiryDate"`
	LabelKind       LabelKind `json:"labelKind,omitempty" yaml:"labelKind,omitempty"`
	IngredientNames []string  `json:"ingredientNames,omitempty" yaml:"ingredientNames,omitempty"`
	AllergenNames   []string  `json:"allergenNames,omitempty" yaml:"allergenNames,omitempty"`
}

// Validate checks the upstream contract. Expiry ordering is deliberately not checked.
func (i PrintableItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: empty name (id %q)", ErrInvalidItem, i.ID)
	}
	if i.Quantity < 1 {
		return fmt.Errorf("%w: %s has quantity %d", ErrInvalidItem, i.Name, i.Quantity)
	}
	return nil
}

// --- Ingredient Catalog ---

type CatalogIngredient struct {
	Name      string   `json:"name" yaml:"name"`
	Allergens []string `json:"allergens,omitempty" yaml:"allergens,omitempty"`
	ShelfLife string   `json:"shelfLife,omitempty" yaml:"shelfLife,omitempty"`
}

type CatalogMenuItem struct {
	Name        string    `json:"name" yaml:"name"`
	LabelKind   LabelKind `json:"labelKind,omitempty" yaml:"labelKind,omitempty"`
	Ingredients []string  `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`
	ShelfLife   string    `json:"shelfLife,omitempty" yaml:"shelfLife,omitempty"`
}

// Catalog is a read-only snapshot of the kitchen's ingredients and menu items.
type Catalog struct {
	Ingredients []CatalogIngredient `json:"ingredients" yaml:"ingredients"`
	Menu        []CatalogMenuItem   `json:"menu,omitempty" yaml:"menu,omitempty"`

	index map[string]int
}

func NewCatalog(ingredients []CatalogIngredient, menu []CatalogMenuItem) *Catalog {
	c := &Catalog{Ingredients: ingredients, Menu: menu}
	c.buildIndex()
	return c
}

func (c *Catalog) buildIndex() {
	c.index = make(map[string]int, len(c.Ingredients))
	for i, ing := range c.Ingredients {
		key := catalogKey(ing.Name)
		if _, exists := c.index[key]; !exists {
			c.index[key] = i
		}
	}
}

// Ingredient looks an ingredient up by name, ignoring case and surrounding space.
func (c *Catalog) Ingredient(name string) (CatalogIngredient, bool) {
	if c == nil {
		return CatalogIngredient{}, false
	}
	if c.index == nil {
		for _, ing := range c.Ingredients {
			if catalogKey(ing.Name) == catalogKey(name) {
				return ing, true
			}
		}
		return CatalogIngredient{}, false
	}
	i, ok := c.index[catalogKey(name)]
	if !ok {
		return CatalogIngredient{}, false
	}
	return c.Ingredients[i], true
}

// MenuItem looks a menu entry up by name, ignoring case.
func (c *Catalog) MenuItem(name string) (CatalogMenuItem, bool) {
	if c == nil {
		return CatalogMenuItem{}, false
	}
	for _, m := range c.Menu {
		if catalogKey(m.Name) == catalogKey(name) {
			return m, true
		}
	}
	return CatalogMenuItem{}, false
}

// QueueItem builds a print queue entry for a catalog name, menu items first.
// Dates start at now and expire after the entry's shelf life.
func (c *Catalog) QueueItem(name string, quantity int, now time.Time) (PrintableItem, bool) {
	item := PrintableItem{Name: strings.TrimSpace(name), Quantity: quantity, PrintedOn: now}
	var shelfLife string

	if m, ok := c.MenuItem(name); ok {
		item.Name = m.Name
		item.Variant = VariantMenu
		item.LabelKind = m.LabelKind
		item.IngredientNames = slices.Clone(m.Ingredients)
		shelfLife = m.ShelfLife
	} else if ing, ok := c.Ingredient(name); ok {
		item.Name = ing.Name
		item.Variant = VariantIngredient
		item.AllergenNames = slices.Clone(ing.Allergens)
		shelfLife = ing.ShelfLife
	} else {
		return PrintableItem{}, false
	}

	if d, err := ParseShelfLife(shelfLife); err == nil && d > 0 {
		item.ExpiryDate = now.Add(d)
	}
	return item, true
}

// ParseShelfLife accepts Go durations plus a whole-day form such as "3d".
func ParseShelfLife(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid shelf life %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid shelf life %q: %w", s, err)
	}
	return d, nil
}

func catalogKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
