package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme represents a predefined color scheme for noise amplitude.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white
	InfernoTheme   ColorTheme = "inferno"   // Black to purple to orange

	DefaultColorMapSize = 256
)

var validThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	JungleTheme:    {},
	ThermalTheme:   {},
	MarineTheme:    {},
	InfernoTheme:   {},
}

// ValueBounds is the range of cell values spread over the color map.
type ValueBounds struct {
	Min float64
	Max float64
}

// ColorMapper maps cell values to colors through a pre-computed table.
type ColorMapper struct {
	colorMap      []color.Color
	theme         func(float64) color.Color
	themeName     ColorTheme
	size          int
	valuePerIndex float64
	boundsMin     float64
}

// NewColorMapper creates a color mapper with the default table size.
func NewColorMapper(theme ColorTheme, bounds ValueBounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a color mapper with size pre-computed
// colors.
func NewColorMapperWithSize(theme ColorTheme, bounds ValueBounds, size int) *ColorMapper {
	if size <= 1 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap:  make([]color.Color, size),
		theme:     getColorTheme(theme),
		themeName: theme,
		size:      size,
	}
	for i := 0; i < cm.size; i++ {
		cm.colorMap[i] = cm.theme(float64(i) / float64(cm.size-1))
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds changes the value range. A collapsed range maps every value
// to the lowest color.
func (cm *ColorMapper) UpdateBounds(bounds ValueBounds) {
	cm.boundsMin = bounds.Min
	cm.valuePerIndex = (bounds.Max - bounds.Min) / float64(cm.size-1)
}

// GetColor returns the color for v.
func (cm *ColorMapper) GetColor(v float64) color.Color {
	if math.IsNaN(v) || cm.valuePerIndex <= 0 {
		return cm.colorMap[0]
	}

	index := int((v - cm.boundsMin) / cm.valuePerIndex)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// ThemeName returns the current color theme name
func (cm *ColorMapper) ThemeName() ColorTheme {
	return cm.themeName
}

// Size returns the color map size
func (cm *ColorMapper) Size() int {
	return cm.size
}

func hsv(h, s, v float64) color.Color {
	return colorful.Hsv(math.Mod(h+360, 360), clamp01(s), clamp01(v)).Clamped()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return func(v float64) color.Color {
			return hsv(240-(v*240), 0.9+(v*0.1), math.Pow(v, 0.7))
		}

	case GrayscaleTheme:
		return func(v float64) color.Color {
			g := uint8(math.Pow(v, 0.7) * 255)
			return color.RGBA{R: g, G: g, B: g, A: 255}
		}

	case JungleTheme:
		return func(v float64) color.Color {
			return hsv(120-(v*60), 1.0, 0.3+(math.Pow(v, 0.6)*0.7))
		}

	case ThermalTheme:
		return func(v float64) color.Color {
			if v < 0.33 {
				return color.RGBA{R: uint8((v * 3) * 255), A: 255}
			}
			if v < 0.66 {
				return color.RGBA{R: 255, G: uint8(((v - 0.33) * 3) * 255), A: 255}
			}
			return color.RGBA{R: 255, G: 255, B: uint8(math.Min(1, (v-0.66)*3) * 255), A: 255}
		}

	case MarineTheme:
		return func(v float64) color.Color {
			return hsv(240-(v*60), 1.0-(v*0.8), 0.3+(math.Pow(v, 0.6)*0.7))
		}

	default:
		// Blends through perceptually uniform stops, dark background first.
		stops := []colorful.Color{
			{R: 0, G: 0, B: 0.02},
			{R: 0.34, G: 0.06, B: 0.43},
			{R: 0.73, G: 0.21, B: 0.33},
			{R: 0.98, G: 0.55, B: 0.04},
			{R: 0.99, G: 1, B: 0.64},
		}
		return func(v float64) color.Color {
			v = clamp01(v)
			pos := v * float64(len(stops)-1)
			i := min(int(pos), len(stops)-2)
			return stops[i].BlendLab(stops[i+1], pos-float64(i)).Clamped()
		}
	}
}
