package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 120.0
	fontSize       = 9.0
	tickMarkLength = 5
	pixelsPerLabel = 80.0

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 60
	defaultRightBorder  = 40

	defaultPlotWidth  = 800
	defaultPlotHeight = 500
)

// BorderConfig defines the sizes of white space around the noise map
type BorderConfig struct {
	Top    int // Space for information bar
	Left   int // Space for frequency scale
	Bottom int // Space for throttle scale
	Right  int // Right padding
}

// RenderConfig holds all configuration options for noise map visualization
type RenderConfig struct {
	PlotWidth  int // Width of the map area in pixels
	PlotHeight int // Height of the map area in pixels

	FontSize     float64
	ColorTheme   ColorTheme
	ColorMapSize int // Number of colors in gradient (0 for default)

	BorderConfig BorderConfig
}

// NoiseMapRenderer draws noise grids with their scales.
type NoiseMapRenderer struct {
	config RenderConfig
	font   *truetype.Font
}

// NewNoiseMapRenderer creates a new renderer with the given configuration
func NewNoiseMapRenderer(config RenderConfig) (*NoiseMapRenderer, error) {
	if config.PlotWidth <= 0 {
		config.PlotWidth = defaultPlotWidth
	}
	if config.PlotHeight <= 0 {
		config.PlotHeight = defaultPlotHeight
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &NoiseMapRenderer{config: config, font: parsedFont}, nil
}

// Render creates an image of the grid with annotations
func (r *NoiseMapRenderer) Render(grid *NoiseGrid) (*image.RGBA, error) {
	b := r.config.BorderConfig
	fullWidth := r.config.PlotWidth + b.Left + b.Right
	fullHeight := r.config.PlotHeight + b.Top + b.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	plotArea := image.Rect(b.Left, b.Top, b.Left+r.config.PlotWidth, b.Top+r.config.PlotHeight)

	size := r.config.ColorMapSize
	if size == 0 {
		size = DefaultColorMapSize
	}
	colorMap := NewColorMapperWithSize(r.config.ColorTheme, grid.Bounds, size)
	r.renderGrid(img, plotArea, grid, colorMap)

	ann := r.newAnnotator(plotArea)
	defer ann.Close()

	if err := ann.annotate(img, grid); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

// renderGrid stretches the grid over area. The lowest frequency row takes
// the bottom of the area.
func (r *NoiseMapRenderer) renderGrid(img *image.RGBA, area image.Rectangle, grid *NoiseGrid, colorMap *ColorMapper) {
	rows, cols := grid.Rows(), grid.Cols()
	width, height := area.Dx(), area.Dy()

	for py := 0; py < height; py++ {
		row := -1
		if rows > 0 {
			row = (height - 1 - py) * rows / height
		}
		for px := 0; px < width; px++ {
			c := colorMap.GetColor(0)
			if row >= 0 && cols > 0 {
				c = colorMap.GetColor(grid.Values[row][px*cols/width])
			}
			img.Set(area.Min.X+px, area.Min.Y+py, c)
		}
	}
}

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
	plot     image.Rectangle
}

func (r *NoiseMapRenderer) newAnnotator(plot image.Rectangle) *annotator {
	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(r.font)
	ctx.SetFontSize(r.config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		plot:    plot,
		fontFace: truetype.NewFace(r.font, &truetype.Options{
			Size:    r.config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, grid *NoiseGrid) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawFrequencyScale(img, grid); err != nil {
		return fmt.Errorf("drawing frequency scale: %w", err)
	}
	if err := a.drawThrottleScale(img, grid); err != nil {
		return fmt.Errorf("drawing throttle scale: %w", err)
	}
	if err := a.drawInfoBar(img, grid); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}
	if err := a.drawWarnings(grid); err != nil {
		return fmt.Errorf("drawing warnings: %w", err)
	}
	return nil
}

func (a *annotator) fontHeight() (height, descent int) {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round(), metrics.Descent.Round()
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, grid *NoiseGrid) error {
	span := grid.FreqMax - grid.FreqMin
	if span <= 0 {
		return nil
	}

	fontHeight, descent := a.fontHeight()
	step := calculateNiceStep(span, a.plot.Dy())
	for freq := math.Ceil(grid.FreqMin/step) * step; freq <= grid.FreqMax; freq += step {
		y := a.plot.Max.Y - 1 - int((freq-grid.FreqMin)/span*float64(a.plot.Dy()-1))

		for x := a.plot.Min.X - tickMarkLength; x < a.plot.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := formatFrequency(freq)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(a.plot.Min.X-tickMarkLength-4-width, y+fontHeight/2-descent)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawThrottleScale(img *image.RGBA, grid *NoiseGrid) error {
	span := grid.ThrottleMax - grid.ThrottleMin
	if span <= 0 {
		return nil
	}

	fontHeight, _ := a.fontHeight()
	step := calculateNiceStep(span, a.plot.Dx())
	for thr := math.Ceil(grid.ThrottleMin/step) * step; thr <= grid.ThrottleMax; thr += step {
		x := a.plot.Min.X + int((thr-grid.ThrottleMin)/span*float64(a.plot.Dx()-1))

		for y := a.plot.Max.Y; y < a.plot.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%.0f%%", thr)
		width := font.MeasureString(a.fontFace, label).Round()
		pt := freetype.Pt(x-width/2, a.plot.Max.Y+tickMarkLength+fontHeight)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing throttle label: %w", err)
		}
	}

	label := "throttle"
	width := font.MeasureString(a.fontFace, label).Round()
	pt := freetype.Pt(a.plot.Min.X+(a.plot.Dx()-width)/2, a.plot.Max.Y+tickMarkLength+2*fontHeight+4)
	if _, err := a.context.DrawString(label, pt); err != nil {
		return fmt.Errorf("drawing throttle caption: %w", err)
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, grid *NoiseGrid) error {
	info := fmt.Sprintf("Session %d; %s %s noise; P: %s; TPA: %s%%; %s - %s",
		grid.SessionID,
		grid.Axis,
		grid.Source,
		humanize.Ftoa(grid.P),
		humanize.Ftoa(grid.TPAPercent),
		formatFrequency(grid.FreqMin),
		formatFrequency(grid.FreqMax))

	fontHeight, descent := a.fontHeight()
	textY := a.plot.Min.Y - (a.plot.Min.Y-fontHeight)/2 - descent
	if _, err := a.context.DrawString(info, freetype.Pt(a.plot.Min.X, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// drawWarnings centers the notes on missing or unusable data over the map.
func (a *annotator) drawWarnings(grid *NoiseGrid) error {
	var lines []string
	if !grid.HasSignal {
		lines = append(lines, fmt.Sprintf("no %s trace found", grid.Source))
		if grid.Source == SourceDebug {
			lines = append(lines,
				"to get transmission of",
				"- all filters: set debug_mode = NOTCH",
				"- LPF only: set debug_mode = GYRO")
		}
	}
	if grid.Source == SourceDebug && !grid.DebugModeValid {
		lines = append(lines,
			"warning: debug does not contain prefiltered gyro",
			"set debug_mode = GYRO_SCALED")
	}
	if len(lines) == 0 {
		return nil
	}

	a.context.SetSrc(image.White)
	defer a.context.SetSrc(image.Black)

	fontHeight, _ := a.fontHeight()
	lineHeight := fontHeight + 4
	top := a.plot.Min.Y + (a.plot.Dy()-lineHeight*len(lines))/2 + fontHeight
	for i, line := range lines {
		width := font.MeasureString(a.fontFace, line).Round()
		pt := freetype.Pt(a.plot.Min.X+(a.plot.Dx()-width)/2, top+i*lineHeight)
		if _, err := a.context.DrawString(line, pt); err != nil {
			return err
		}
	}
	return nil
}

// calculateNiceStep picks a 1, 2 or 5 times power of ten step that puts
// roughly one label per pixelsPerLabel pixels.
func calculateNiceStep(span float64, pixels int) float64 {
	desired := math.Max(1, float64(pixels)/pixelsPerLabel)
	rough := span / desired

	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * magnitude; step >= rough {
			return step
		}
	}
	return 10 * magnitude
}

func formatFrequency(freq float64) string {
	if freq >= 1e3 {
		return fmt.Sprintf("%.1f kHz", freq/1e3)
	}
	return fmt.Sprintf("%.0f Hz", freq)
}
