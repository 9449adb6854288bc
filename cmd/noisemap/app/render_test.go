package app

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/bbl-analyzer/internal/analysis"
)

func testResult() *analysis.Result {
	return &analysis.Result{
		Axis:       "roll",
		P:          45,
		TPAPercent: 65,
		GyroNoise: analysis.NoiseMap{
			Freq:     []float64{0, 250, 500},
			Throttle: []float64{0, 50, 100},
			Smoothed: [][]float64{{0, 1}, {3, 4}},
			Counts:   []float64{5, 7},
			Max:      4,
		},
		DebugNoise: analysis.NoiseMap{
			Freq:     []float64{0, 250, 500},
			Throttle: []float64{0, 50, 100},
			Smoothed: [][]float64{{0, 0}, {0, 0}},
			Counts:   []float64{5, 7},
			Max:      analysis.NoSignal,
		},
	}
}

func TestNewNoiseGrid(t *testing.T) {
	g := NewNoiseGrid(testResult(), SourceGyro)

	assert.Equal(t, "roll", g.Axis)
	assert.Equal(t, 2, g.Rows())
	assert.Equal(t, 2, g.Cols())
	assert.Equal(t, 0.0, g.FreqMin)
	assert.Equal(t, 500.0, g.FreqMax)
	assert.Equal(t, 100.0, g.ThrottleMax)
	assert.True(t, g.HasSignal)
	assert.InDelta(t, math.Log(5), g.Bounds.Max, 1e-12)
	assert.InDelta(t, math.Log(2), g.Values[0][1], 1e-12)

	debug := NewNoiseGrid(testResult(), SourceDebug)
	assert.False(t, debug.HasSignal)
	assert.Equal(t, 0.0, debug.Bounds.Max)

	empty := NewNoiseGrid(&analysis.Result{Axis: "yaw"}, SourceDTerm)
	assert.Equal(t, 0, empty.Rows())
	assert.Equal(t, 0, empty.Cols())
}

func TestRenderLayout(t *testing.T) {
	r, err := NewNoiseMapRenderer(RenderConfig{PlotWidth: 200, PlotHeight: 100, ColorTheme: GrayscaleTheme})
	require.NoError(t, err)

	grid := NewNoiseGrid(testResult(), SourceGyro)
	img, err := r.Render(grid)
	require.NoError(t, err)

	b := r.config.BorderConfig
	assert.Equal(t, image.Rect(0, 0, 200+b.Left+b.Right, 100+b.Top+b.Bottom), img.Bounds())

	cm := NewColorMapper(GrayscaleTheme, grid.Bounds)
	bottomLeft := img.RGBAAt(b.Left+1, b.Top+98)
	topRight := img.RGBAAt(b.Left+198, b.Top+1)
	assert.Equal(t, rgba(cm.GetColor(0)), bottomLeft, "lowest frequency is drawn at the bottom")
	assert.Equal(t, rgba(cm.GetColor(grid.Bounds.Max)), topRight)

	corner := img.RGBAAt(img.Bounds().Max.X-1, img.Bounds().Max.Y-1)
	assert.Equal(t, uint8(255), corner.R, "borders are white")
}

func TestRenderNoSignalWarning(t *testing.T) {
	r, err := NewNoiseMapRenderer(RenderConfig{PlotWidth: 400, PlotHeight: 200, ColorTheme: GrayscaleTheme})
	require.NoError(t, err)

	countMarked := func(grid *NoiseGrid) int {
		img, err := r.Render(grid)
		require.NoError(t, err)

		b := r.config.BorderConfig
		base := rgba(NewColorMapper(GrayscaleTheme, grid.Bounds).GetColor(0))
		marked := 0
		for y := b.Top; y < b.Top+200; y++ {
			for x := b.Left; x < b.Left+400; x++ {
				if img.RGBAAt(x, y) != base {
					marked++
				}
			}
		}
		return marked
	}

	debug := NewNoiseGrid(testResult(), SourceDebug)
	debug.DebugModeValid = true
	assert.Positive(t, countMarked(debug), "missing trace note is drawn over the map")

	blank := NewNoiseGrid(testResult(), SourceDebug)
	blank.HasSignal = true
	blank.DebugModeValid = true
	assert.Zero(t, countMarked(blank))

	blank.DebugModeValid = false
	assert.Positive(t, countMarked(blank), "debug mode note is drawn over the map")
}

func TestRenderEmptyGrid(t *testing.T) {
	r, err := NewNoiseMapRenderer(RenderConfig{})
	require.NoError(t, err)

	img, err := r.Render(NewNoiseGrid(&analysis.Result{Axis: "yaw"}, SourceDTerm))
	require.NoError(t, err)
	assert.Equal(t, defaultPlotWidth+defaultLeftBorder+defaultRightBorder, img.Bounds().Dx())
}

func TestCalculateNiceStep(t *testing.T) {
	tests := []struct {
		span   float64
		pixels int
		want   float64
	}{
		{span: 100, pixels: 800, want: 10},
		{span: 500, pixels: 500, want: 100},
		{span: 1000, pixels: 400, want: 200},
		{span: 30, pixels: 80, want: 50},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, calculateNiceStep(tt.span, tt.pixels), 1e-9, "span %v over %d px", tt.span, tt.pixels)
	}
}
