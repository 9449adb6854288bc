package app

import (
	"math"

	"github.com/roman-kulish/bbl-analyzer/internal/analysis"
)

// Source names the signal a noise map was computed from.
type Source string

const (
	SourceGyro  Source = "gyro"
	SourceDebug Source = "debug"
	SourceDTerm Source = "dterm"
)

var validSources = map[Source]struct{}{
	SourceGyro:  {},
	SourceDebug: {},
	SourceDTerm: {},
}

// NoiseGrid is a noise map prepared for drawing. Values hold log(v+1) of the
// smoothed amplitude, indexed [frequency][throttle] with the lowest
// frequency first.
type NoiseGrid struct {
	Axis   string
	Source Source

	FreqMin     float64
	FreqMax     float64
	ThrottleMin float64
	ThrottleMax float64

	Values    [][]float64
	Bounds    ValueBounds
	HasSignal bool

	P              float64
	TPAPercent     float64
	SessionID      int64
	DebugModeValid bool
}

// Rows returns the number of frequency bins.
func (g *NoiseGrid) Rows() int {
	return len(g.Values)
}

// Cols returns the number of throttle bins.
func (g *NoiseGrid) Cols() int {
	if len(g.Values) == 0 {
		return 0
	}
	return len(g.Values[0])
}

// NewNoiseGrid selects the map of source from res and log scales it.
func NewNoiseGrid(res *analysis.Result, source Source) *NoiseGrid {
	var m analysis.NoiseMap
	switch source {
	case SourceDebug:
		m = res.DebugNoise
	case SourceDTerm:
		m = res.DTermNoise
	default:
		m = res.GyroNoise
	}

	g := &NoiseGrid{
		Axis:       res.Axis,
		Source:     source,
		Values:     make([][]float64, len(m.Smoothed)),
		Bounds:     ValueBounds{Min: 0, Max: math.Log1p(m.Max)},
		HasSignal:  m.HasSignal(),
		P:          res.P,
		TPAPercent: res.TPAPercent,
	}
	if n := len(m.Freq); n > 0 {
		g.FreqMin, g.FreqMax = m.Freq[0], m.Freq[n-1]
	}
	if n := len(m.Throttle); n > 0 {
		g.ThrottleMin, g.ThrottleMax = m.Throttle[0], m.Throttle[n-1]
	}

	for f, row := range m.Smoothed {
		g.Values[f] = make([]float64, len(row))
		for t, v := range row {
			g.Values[f][t] = math.Log1p(math.Max(v, 0))
		}
	}
	return g
}
