package app

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestColorMapperBounds(t *testing.T) {
	cm := NewColorMapperWithSize(ClassicTheme, ValueBounds{Min: 0, Max: 10}, 11)
	assert.Equal(t, 11, cm.Size())
	assert.Equal(t, ClassicTheme, cm.ThemeName())

	low, high := rgba(cm.colorMap[0]), rgba(cm.colorMap[10])

	tests := []struct {
		name  string
		value float64
		want  color.RGBA
	}{
		{name: "min", value: 0, want: low},
		{name: "below min", value: -5, want: low},
		{name: "max", value: 10, want: high},
		{name: "above max", value: 100, want: high},
		{name: "nan", value: math.NaN(), want: low},
		{name: "middle", value: 5, want: rgba(cm.colorMap[5])},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rgba(cm.GetColor(tt.value)))
		})
	}
}

func TestColorMapperCollapsedBounds(t *testing.T) {
	cm := NewColorMapper(InfernoTheme, ValueBounds{})
	assert.Equal(t, rgba(cm.colorMap[0]), rgba(cm.GetColor(3)))

	cm.UpdateBounds(ValueBounds{Min: 0, Max: 3})
	assert.Equal(t, rgba(cm.colorMap[DefaultColorMapSize-1]), rgba(cm.GetColor(10)))
}

func TestColorThemes(t *testing.T) {
	for theme := range validThemes {
		t.Run(string(theme), func(t *testing.T) {
			cm := NewColorMapper(theme, ValueBounds{Min: 0, Max: 1})
			for _, c := range cm.colorMap {
				assert.Equal(t, uint8(255), rgba(c).A)
			}
			assert.NotEqual(t, rgba(cm.colorMap[0]), rgba(cm.colorMap[cm.Size()-1]))
		})
	}
}

func TestGrayscaleIsMonotonic(t *testing.T) {
	cm := NewColorMapper(GrayscaleTheme, ValueBounds{Min: 0, Max: 1})
	prev := -1
	for _, c := range cm.colorMap {
		v := int(rgba(c).R)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
	assert.Equal(t, color.RGBA{A: 255}, rgba(cm.colorMap[0]))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, rgba(cm.colorMap[cm.Size()-1]))
}
