// Package raster draws label content as a monochrome pixel image sized to the
// physical label.
package raster

import (
	"strings"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label"
)

// PtToMm converts font sizes to canvas millimetres.
const PtToMm = 0.352777

const lineFactor = 1.25

type ElementKind int

const (
	ElementText ElementKind = iota
	ElementRect
	ElementCircle
	ElementLine
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Element is one positioned primitive. Coordinates are millimetres from the
// top-left corner. Circles use X/Y as centre and W as diameter; lines run from
// X/Y by W/H.
type Element struct {
	Kind        ElementKind
	X, Y, W, H  float64
	Text        string
	FontSize    float64
	Bold        bool
	Inverted    bool
	Align       Align
	Filled      bool
	StrokeWidth float64
}

// Tree is the visual tree of one label.
type Tree struct {
	Width    float64
	Height   float64
	Variant  label.Variant
	Elements []Element
}

// Texts returns the text of every text element in drawing order.
func (t Tree) Texts() []string {
	var out []string
	for _, el := range t.Elements {
		if el.Kind == ElementText {
			out = append(out, el.Text)
		}
	}
	return out
}

// Build lays out content for the configured height. It performs no I/O.
func Build(c label.Content, cfg label.LayoutConfig) Tree {
	b := &builder{
		cfg:    cfg,
		tree:   Tree{Width: label.WidthMM, Height: float64(cfg.HeightMM), Variant: c.Variant},
		cursor: cfg.Padding,
	}
	switch c.Variant {
	case label.VariantFIFO:
		b.fifo(c)
	case label.VariantMenu:
		b.menu(c)
	case label.VariantPPDS:
		b.ppds(c)
	case label.VariantIngredient:
		b.ingredient(c)
	default:
		b.fallback(c)
	}
	return b.tree
}

type builder struct {
	cfg    label.LayoutConfig
	tree   Tree
	cursor float64
}

func (b *builder) innerWidth() float64 {
	return b.tree.Width - 2*b.cfg.Padding
}

func (b *builder) add(el Element) {
	b.tree.Elements = append(b.tree.Elements, el)
}

func lineHeight(size float64) float64 {
	return size * PtToMm * lineFactor
}

func (b *builder) text(s string, size float64, bold bool, align Align) {
	b.add(Element{
		Kind:     ElementText,
		X:        b.cfg.Padding,
		Y:        b.cursor,
		W:        b.innerWidth(),
		H:        lineHeight(size),
		Text:     label.Truncate(s, b.cfg.MaxLineChars),
		FontSize: size,
		Bold:     bold,
		Align:    align,
	})
	b.cursor += lineHeight(size)
}

// lines writes a comma separated list packed into lines by character count.
func (b *builder) lines(prefix string, parts []string, size float64, bold bool) {
	for _, ln := range packByChars(prefix, parts, b.cfg.MaxLineChars) {
		b.text(ln, size, bold, AlignLeft)
	}
}

// row puts two texts on one line, one flush left and one flush right.
func (b *builder) row(left, right string, size float64) {
	half := b.cfg.MaxLineChars / 2
	h := lineHeight(size)
	b.add(Element{Kind: ElementText, X: b.cfg.Padding, Y: b.cursor, W: b.innerWidth(), H: h,
		Text: label.Truncate(left, half), FontSize: size, Align: AlignLeft})
	if right != "" {
		b.add(Element{Kind: ElementText, X: b.cfg.Padding, Y: b.cursor, W: b.innerWidth(), H: h,
			Text: label.Truncate(right, half), FontSize: size, Align: AlignRight})
	}
	b.cursor += h
}

// banner draws inverted text on a filled bar across the label.
func (b *builder) banner(s string, size float64) {
	h := lineHeight(size)
	b.add(Element{Kind: ElementRect, X: b.cfg.Padding, Y: b.cursor, W: b.innerWidth(), H: h, Filled: true})
	b.add(Element{Kind: ElementText, X: b.cfg.Padding, Y: b.cursor, W: b.innerWidth(), H: h,
		Text: label.Truncate(s, b.cfg.MaxLineChars), FontSize: size, Bold: true, Inverted: true, Align: AlignCenter})
	b.cursor += h
}

func (b *builder) gap() {
	b.cursor += b.cfg.SectionSpacing
}

func (b *builder) name(c label.Content) {
	b.text(c.Name, c.NameFontSize, true, AlignCenter)
	b.gap()
}

func (b *builder) fifo(c label.Content) {
	w, h := b.tree.Width, b.tree.Height
	pad := b.cfg.Padding
	b.add(Element{Kind: ElementRect, X: pad, Y: pad, W: w - 2*pad, H: h - 2*pad, StrokeWidth: 0.8})

	size := b.cfg.NameFontSize * 1.6
	radius := lineHeight(size) * 0.9
	b.add(Element{Kind: ElementCircle, X: w / 2, Y: h/2 - radius/3, W: 2 * radius, StrokeWidth: 0.6})
	b.add(Element{Kind: ElementText, X: pad, Y: h/2 - radius/3 - lineHeight(size)/2, W: w - 2*pad,
		H: lineHeight(size), Text: label.FIFOName, FontSize: size, Bold: true, Align: AlignCenter})

	y := h - pad - lineHeight(b.cfg.SmallFontSize) - 1
	b.add(Element{Kind: ElementText, X: pad, Y: y, W: w - 2*pad, H: lineHeight(b.cfg.SmallFontSize),
		Text: "FIRST IN - FIRST OUT", FontSize: b.cfg.SmallFontSize, Bold: true, Align: AlignCenter})

	arrowY := y - 1
	arrowX := pad + 3
	arrowLen := w - 2*pad - 6
	b.add(Element{Kind: ElementLine, X: arrowX, Y: arrowY, W: arrowLen, StrokeWidth: 0.5})
	b.add(Element{Kind: ElementLine, X: arrowX + arrowLen, Y: arrowY, W: -1.5, H: -1.2, StrokeWidth: 0.5})
	b.add(Element{Kind: ElementLine, X: arrowX + arrowLen, Y: arrowY, W: -1.5, H: 1.2, StrokeWidth: 0.5})
}

func (b *builder) menu(c label.Content) {
	b.name(c)
	b.text("Expiry: "+c.Expiry, b.cfg.BodyFontSize, true, AlignLeft)
	b.row("Printed: "+c.PrintedOn, joinNonEmpty(" ", c.InitialTag(), c.LabelKind), b.cfg.SmallFontSize)
	b.gap()
	if len(c.Allergens) == 0 {
		b.text("Contains: No allergens", b.cfg.SmallFontSize, false, AlignLeft)
		return
	}
	b.lines("Contains: ", c.Allergens, b.cfg.SmallFontSize, true)
}

func (b *builder) ppds(c label.Content) {
	b.name(c)
	b.text("Best before: "+c.Expiry, b.cfg.BodyFontSize, true, AlignLeft)
	b.gap()
	parts := make([]string, len(c.Ingredients))
	for i, ing := range c.Ingredients {
		parts[i] = ing.Highlighted()
	}
	b.lines("Ingredients: ", parts, b.cfg.SmallFontSize, false)
}

func (b *builder) ingredient(c label.Content) {
	b.name(c)
	b.text("Expiry: "+c.Expiry, b.cfg.BodyFontSize, true, AlignLeft)
	b.row("Printed: "+c.PrintedOn, c.InitialTag(), b.cfg.SmallFontSize)
	if len(c.Allergens) == 0 {
		return
	}
	b.gap()
	b.banner("CONTAINS ALLERGENS", b.cfg.BannerFontSize)
	upper := make([]string, len(c.Allergens))
	for i, a := range c.Allergens {
		upper[i] = strings.ToUpper(a)
	}
	b.lines("", upper, b.cfg.SmallFontSize, true)
}

func (b *builder) fallback(c label.Content) {
	b.name(c)
	b.row("Printed: "+c.PrintedOn, "Expiry: "+c.Expiry, b.cfg.SmallFontSize)
	b.gap()

	shown, hidden := label.Limit(c.IngredientNames(), b.cfg.MaxIngredients)
	if hidden > 0 {
		shown = append(append([]string(nil), shown...), label.MoreMarker(hidden))
	}
	if len(shown) > 0 {
		b.lines("Ingredients: ", shown, b.cfg.SmallFontSize, false)
	}

	allergenic := c.AllergenicIngredients()
	names := make([]string, len(allergenic))
	for i, ing := range allergenic {
		names[i] = ing.Highlighted()
	}
	shownAllergens, hiddenAllergens := label.Limit(names, b.cfg.MaxAllergens)
	if hiddenAllergens > 0 {
		shownAllergens = append(append([]string(nil), shownAllergens...), label.MoreMarker(hiddenAllergens))
	}
	if len(shownAllergens) > 0 {
		b.lines("Allergens: ", shownAllergens, b.cfg.SmallFontSize, true)
	}
}

// packByChars joins parts with ", " into lines of at most max runes. A part
// longer than a whole line is truncated rather than split.
func packByChars(prefix string, parts []string, max int) []string {
	var out []string
	current := prefix
	empty := true
	for _, p := range parts {
		candidate := current + p
		if !empty {
			candidate = current + ", " + p
		}
		if !empty && len([]rune(candidate)) > max {
			out = append(out, current)
			current = p
			continue
		}
		current = candidate
		empty = false
	}
	if !empty || prefix != "" {
		out = append(out, current)
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
