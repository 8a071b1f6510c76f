// Package label turns print queue items into label content shared by the raster
// and control-stream renderers.
package label

import (
	"fmt"
	"sort"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

// WidthMM is the fixed physical label width.
const WidthMM = 56.0

// DotsPerMM matches a 203 dpi thermal head.
const DotsPerMM = 8.0

type StreamMode string

const (
	StreamCompact  StreamMode = "compact"
	StreamExtended StreamMode = "extended"
)

// LayoutConfig holds the typographic constants of one physical label height.
// Font sizes are in points, distances in millimetres.
type LayoutConfig struct {
	HeightMM int

	NameFontSize  float64
	NameStepTwo   float64
	NameStepThree float64
	NameFontFloor float64

	BodyFontSize   float64
	SmallFontSize  float64
	BannerFontSize float64

	MaxNameChars   int
	MaxLineChars   int
	MaxIngredients int
	MaxAllergens   int

	SectionSpacing float64
	Padding        float64

	StreamMode         StreamMode
	StreamColumns      int
	StreamFitThreshold int
}

var layoutConfigs = map[int]LayoutConfig{
	31: {
		HeightMM:           31,
		NameFontSize:       14,
		NameStepTwo:        2,
		NameStepThree:      4,
		NameFontFloor:      9,
		BodyFontSize:       8,
		SmallFontSize:      7,
		BannerFontSize:     8,
		MaxNameChars:       24,
		MaxLineChars:       44,
		MaxIngredients:     4,
		MaxAllergens:       4,
		SectionSpacing:     1.0,
		Padding:            1.5,
		StreamMode:         StreamCompact,
		StreamColumns:      42,
		StreamFitThreshold: 6,
	},
	80: {
		HeightMM:           80,
		NameFontSize:       20,
		NameStepTwo:        3,
		NameStepThree:      6,
		NameFontFloor:      12,
		BodyFontSize:       11,
		SmallFontSize:      9,
		BannerFontSize:     12,
		MaxNameChars:       32,
		MaxLineChars:       44,
		MaxIngredients:     10,
		MaxAllergens:       8,
		SectionSpacing:     2.5,
		Padding:            2.5,
		StreamMode:         StreamExtended,
		StreamColumns:      42,
		StreamFitThreshold: 14,
	},
}

// ConfigFor returns the layout constants for a physical height. Unknown heights
// are rejected rather than mapped to the nearest size.
func ConfigFor(heightMM int) (LayoutConfig, error) {
	cfg, ok := layoutConfigs[heightMM]
	if !ok {
		return LayoutConfig{}, fmt.Errorf("%w: %dmm (supported: %v)", model.ErrUnsupportedHeight, heightMM, SupportedHeights())
	}
	return cfg, nil
}

// SupportedHeights lists the configured heights in ascending order.
func SupportedHeights() []int {
	heights := make([]int, 0, len(layoutConfigs))
	for h := range layoutConfigs {
		heights = append(heights, h)
	}
	sort.Ints(heights)
	return heights
}

// HeightPixels is the raster height for this config.
func (c LayoutConfig) HeightPixels() int {
	return int(float64(c.HeightMM) * DotsPerMM)
}
