package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// ResponseCurve is the aggregate step response of one input regime.
// Density is indexed [amplitude bin][response sample] and normalized per
// sample; it is not persisted.
type ResponseCurve struct {
	Values  []float64   `json:"values"`
	Spread  []float64   `json:"spread"`
	Density [][]float64 `json:"-"`
	Windows int         `json:"windows"`
}

// WindowStats describes one step response analysis window.
type WindowStats struct {
	Time        float64 `json:"time"`
	MeanInput   float64 `json:"meanInput"`
	MaxInput    float64 `json:"maxInput"`
	MaxThrottle float64 `json:"maxThrottle"`
}

// StepResponse holds the low and high input step responses on a shared
// time axis. High and HighMask are nil when too few windows carry high
// input; that means insufficient data, not a failure.
type StepResponse struct {
	Time      []float64      `json:"time"`
	Amplitude []float64      `json:"amplitude"`
	Low       ResponseCurve  `json:"low"`
	High      *ResponseCurve `json:"high,omitempty"`
	HighMask  []bool         `json:"highMask,omitempty"`
	Windows   []WindowStats  `json:"windows"`
}

func (a *Analyzer) responsePlaceholder(rlen int, dt float64) StepResponse {
	r := StepResponse{
		Time:      make([]float64, rlen),
		Amplitude: uniformGrid(a.opts.ResponseMin, a.opts.ResponseMax, a.opts.ResponseBins),
		Low: ResponseCurve{
			Values: make([]float64, rlen),
			Spread: make([]float64, rlen),
		},
	}
	for i := range r.Time {
		r.Time[i] = float64(i) * dt
	}
	return r
}

func (a *Analyzer) stepResponse(axis string, s series) StepResponse {
	n := len(s.time)
	flen := samples(a.opts.ResponseFrame, s.dt)
	rlen := min(samples(a.opts.ResponseLength, s.dt), flen)

	if flen < 2 || flen > n {
		a.degenerate(axis, "step_response", "trace shorter than one response window")
		return a.responsePlaceholder(max(rlen, 0), s.dt)
	}

	shift := max(1, flen/a.opts.Superposition)
	count := n/shift - a.opts.Superposition
	if limit := (n-flen)/shift + 1; count > limit {
		count = limit
	}
	if count <= 0 {
		a.degenerate(axis, "step_response", "too few samples for overlapping response windows")
		return a.responsePlaceholder(rlen, s.dt)
	}

	res := a.responsePlaceholder(rlen, s.dt)
	res.Windows = make([]WindowStats, count)

	nfft := paddedLen(flen)
	fft := fourier.NewFFT(nfft)
	reg := wienerRegularization(nfft, s.dt, a.opts.InputCutoff)
	hw := hann(flen)
	tail := max(0, min(samples(2/a.opts.InputCutoff, s.dt), nfft-rlen))

	in := make([]float64, nfft)
	out := make([]float64, nfft)
	seq := make([]float64, nfft)
	var hc, gc []complex128

	steps := make([][]float64, count)
	for i := 0; i < count; i++ {
		start := i * shift
		clear(in)
		clear(out)

		var maxThr float64
		for j, w := range hw {
			in[j] = s.input[start+j] * w
			out[j] = s.gyro[start+j] * w
			maxThr = max(maxThr, math.Abs(s.throttle[start+j]*w))
		}

		res.Windows[i] = WindowStats{
			Time:        stat.Mean(s.time[start:start+flen], nil),
			MeanInput:   meanAbs(in[:flen]),
			MaxInput:    maxAbs(in[:flen]),
			MaxThrottle: maxThr,
		}

		hc = fft.Coefficients(hc, in)
		gc = fft.Coefficients(gc, out)
		for k, h := range hc {
			hh := real(h)*real(h) + imag(h)*imag(h)
			gc[k] = gc[k] * cmplx.Conj(h) / complex(hh+reg[k], 0)
		}
		seq = fft.Sequence(seq, gc)

		// Lags below zero wrap to the end of seq. The regularized kernel
		// spreads the impulse about 2/InputCutoff to either side, so that
		// tail is summed before lag zero.
		var acc float64
		for _, v := range seq[nfft-tail:] {
			acc += v / float64(nfft)
		}
		step := make([]float64, rlen)
		for j := range step {
			acc += seq[j] / float64(nfft)
			step[j] = acc
		}
		steps[i] = step
	}

	maxIn := make([]float64, count)
	for i, w := range res.Windows {
		maxIn[i] = w.MaxInput
	}

	active := aboveMask(maxIn, a.opts.LowThreshold, a.opts.MinHighWindows)
	high := aboveMask(maxIn, a.opts.HighThreshold, a.opts.MinHighWindows)

	lowWeights := make([]float64, count)
	highWeights := make([]float64, count)
	var highCount int
	for i := range maxIn {
		if !active[i] {
			continue
		}
		if high[i] {
			highWeights[i] = 1
			highCount++
		} else {
			lowWeights[i] = 1
		}
	}

	res.Low = a.weightedModeAverage(steps, lowWeights, rlen)
	if res.Low.Windows == 0 {
		a.degenerate(axis, "step_response", "no windows with low input, using zero response")
	}

	if highCount > 0 {
		hr := a.weightedModeAverage(steps, highWeights, rlen)
		res.High = &hr
		res.HighMask = high
	}

	return res
}

// wienerRegularization returns the noise term added to |H|² for each real
// FFT bin: small below the input cutoff and large above it, with a smooth
// transition.
func wienerRegularization(nfft int, dt, cutoff float64) []float64 {
	mask := stepMask(fftFreqAbs(nfft, dt), cutoff)

	var passband float64
	for _, m := range mask {
		passband += 1 - m
	}
	mask = toMask(gaussian1D(mask, passband/6, modeReflect))

	reg := make([]float64, nfft/2+1)
	for k := range reg {
		sn := 10 * (1 - mask[k] + 1e-9)
		reg[k] = 1 / sn
	}
	return reg
}

// aboveMask marks values above threshold. Fewer than minCount marks clear
// the whole mask.
func aboveMask(values []float64, threshold float64, minCount int) []bool {
	mask := make([]bool, len(values))
	var n int
	for i, v := range values {
		if v > threshold {
			mask[i] = true
			n++
		}
	}
	if n < minCount {
		clear(mask)
	}
	return mask
}

// weightedModeAverage aggregates the step responses of the weighted
// windows. A weighted histogram over (amplitude, response sample) is
// smoothed along amplitude and normalized per sample; the curve follows
// the histogram mode by weighting amplitudes with the squared density.
func (a *Analyzer) weightedModeAverage(steps [][]float64, weights []float64, rlen int) ResponseCurve {
	bins := a.opts.ResponseBins
	lo, hi := a.opts.ResponseMin, a.opts.ResponseMax

	curve := ResponseCurve{
		Values: make([]float64, rlen),
		Spread: make([]float64, rlen),
	}

	hist := zeroGrid(bins, rlen)
	var total float64
	for i, step := range steps {
		w := weights[i]
		if w == 0 {
			continue
		}
		curve.Windows++
		for j, v := range step {
			if b, ok := binIndex(v, bins, lo, hi); ok {
				hist[b][j] += w
				total += w
			}
		}
	}

	if total == 0 {
		curve.Density = hist
		return curve
	}

	density := smoothColumns(hist, a.opts.ResponseSigma, modeConstant)
	amplitude := uniformGrid(lo, hi, bins)
	binSpread := 0.5 * (hi - lo) / float64(bins)

	for j := 0; j < rlen; j++ {
		var colMax float64
		for b := range density {
			colMax = max(colMax, density[b][j])
		}

		var num, den float64
		for b := range density {
			if colMax > 0 {
				density[b][j] /= colMax
			}
			d2 := density[b][j] * density[b][j]
			num += amplitude[b] * d2
			den += d2

			if hist[b][j] > 0.5 {
				curve.Spread[j] += binSpread
			}
		}
		if den > 0 {
			curve.Values[j] = num / den
		}
	}

	curve.Density = density
	return curve
}

func maxAbs(x []float64) float64 {
	var m float64
	for _, v := range x {
		m = max(m, math.Abs(v))
	}
	return m
}

func meanAbs(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		s += math.Abs(v)
	}
	return s / float64(len(x))
}
