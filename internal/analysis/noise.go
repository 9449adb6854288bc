package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NoSignal is the Max of a noise map built from an all zero channel.
const NoSignal = 0.0

// NoiseMap is the spectral energy of a signal binned by frequency and
// throttle. Freq and Throttle hold bin edges; Smoothed and Raw are indexed
// [frequency bin][throttle bin].
type NoiseMap struct {
	Freq     []float64   `json:"freq"`
	Throttle []float64   `json:"throttle"`
	Smoothed [][]float64 `json:"smoothed"`
	Raw      [][]float64 `json:"-"`
	Counts   []float64   `json:"counts"`
	Max      float64     `json:"max"`
}

// HasSignal reports whether the map holds any energy above the noise floor.
func (m NoiseMap) HasSignal() bool {
	return m.Max != NoSignal
}

func (m NoiseMap) empty() bool {
	for _, row := range m.Raw {
		if floats.Sum(row) != 0 {
			return false
		}
	}
	return true
}

// noiseWindows describes how a series is cut into noise analysis windows.
type noiseWindows struct {
	length int
	shift  int
	count  int
	nfft   int
	window []float64
	freq   []float64 // rfft bin frequencies
	edges  []float64 // frequency bin edges of the map
	thr    []float64 // mean throttle per window
}

func (a *Analyzer) noiseWindows(s series) noiseWindows {
	var w noiseWindows
	n := len(s.time)

	w.length = samples(a.opts.NoiseFrame, s.dt)
	if w.length < 2 {
		return w
	}
	w.nfft = paddedLen(w.length)
	w.freq = rfftFreq(w.nfft, s.dt)

	if nf := len(w.freq) / a.opts.FreqDecimation; nf > 0 {
		w.edges = uniformGrid(w.freq[0], w.freq[len(w.freq)-1], nf+1)
	}

	if w.length > n {
		return w
	}

	w.shift = max(1, w.length/a.opts.NoiseSuperposition)
	w.count = n/w.shift - a.opts.NoiseSuperposition
	if limit := (n-w.length)/w.shift + 1; w.count > limit {
		w.count = limit
	}

	// drop the windows of the last seconds, they hold the landing
	if a.opts.LandingCut > 0 {
		w.count -= int(float64(a.opts.NoiseSuperposition) * a.opts.LandingCut / a.opts.NoiseFrame)
	}
	if w.count <= 0 {
		w.count = 0
		return w
	}

	w.window = hann(w.length)
	w.thr = make([]float64, w.count)
	for i := range w.thr {
		start := i * w.shift
		w.thr[i] = stat.Mean(s.throttle[start:start+w.length], nil)
	}

	return w
}

func (a *Analyzer) noisePlaceholder(edges []float64) NoiseMap {
	nt := a.opts.ThrottleBins
	nf := max(0, len(edges)-1)

	m := NoiseMap{
		Freq:     append([]float64(nil), edges...),
		Throttle: uniformGrid(0, 100, nt+1),
		Smoothed: zeroGrid(nf, nt),
		Raw:      zeroGrid(nf, nt),
		Counts:   make([]float64, nt),
		Max:      NoSignal,
	}
	return m
}

func (a *Analyzer) noiseMap(axis, source string, s series, signal []float64, w noiseWindows) NoiseMap {
	if w.count == 0 || len(w.edges) < 2 {
		a.degenerate(axis, "noise/"+source, "trace shorter than one noise window")
		return a.noisePlaceholder(w.edges)
	}

	m := a.noisePlaceholder(w.edges)
	nf, nt := len(w.edges)-1, a.opts.ThrottleBins
	fLo, fHi := w.edges[0], w.edges[nf]

	spec := newSpectrum(w.nfft)
	mag := make([]float64, len(w.freq))
	for i := 0; i < w.count; i++ {
		tb, ok := binIndex(w.thr[i], nt, 0, 100)
		if !ok {
			continue
		}
		m.Counts[tb]++

		start := i * w.shift
		spec.magnitude(mag, signal[start:start+w.length], w.window)
		for k, f := range w.freq {
			if fb, ok := binIndex(f, nf, fLo, fHi); ok {
				m.Raw[fb][tb] += mag[k]
			}
		}
	}

	norm := zeroGrid(nf, nt)
	for f := range norm {
		for t := range norm[f] {
			norm[f][t] = m.Raw[f][t] / (m.Counts[t] + 1e-9)
		}
	}
	m.Smoothed = smoothRows(norm, a.opts.ThrottleSigma, modeConstant)
	m.Max = gridMax(m.Smoothed, w.edges, a.opts.NoiseFloorFreq)

	if m.Max == NoSignal {
		a.degenerate(axis, "noise/"+source, "no "+source+" trace found")
	}

	return m
}

// gridMax is the largest value of the rows whose lower frequency edge is at
// or above floor. Without such rows the whole grid counts.
func gridMax(grid [][]float64, edges []float64, floor float64) float64 {
	var out float64
	found := false
	for f, row := range grid {
		if edges[f] < floor || len(row) == 0 {
			continue
		}
		out = max(out, floats.Max(row))
		found = true
	}
	if found {
		return out
	}

	for _, row := range grid {
		if len(row) > 0 {
			out = max(out, floats.Max(row))
		}
	}
	return out
}

func zeroGrid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}
