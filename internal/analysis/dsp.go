package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// fftBlock is the granularity windows are zero padded to before the FFT.
const fftBlock = 1024

type boundaryMode int

const (
	// modeConstant treats samples outside the input as zero.
	modeConstant boundaryMode = iota

	// modeReflect mirrors the input about its edges (d c b a | a b c d | d c b a).
	modeReflect
)

// gaussianKernel returns a normalized kernel truncated at four sigma.
func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// gaussian1D smooths src with a gaussian of the given sigma in samples.
func gaussian1D(src []float64, sigma float64, mode boundaryMode) []float64 {
	n := len(src)
	dst := make([]float64, n)
	if n == 0 {
		return dst
	}
	if sigma <= 0 {
		copy(dst, src)
		return dst
	}

	k := gaussianKernel(sigma)
	radius := len(k) / 2
	for i := range dst {
		var acc float64
		for j, w := range k {
			idx := i + j - radius
			if idx < 0 || idx >= n {
				if mode == modeConstant {
					continue
				}
				idx = reflectIndex(idx, n)
			}
			acc += w * src[idx]
		}
		dst[i] = acc
	}
	return dst
}

func reflectIndex(idx, n int) int {
	period := 2 * n
	idx %= period
	if idx < 0 {
		idx += period
	}
	if idx >= n {
		idx = period - 1 - idx
	}
	return idx
}

// smoothRows applies gaussian1D to every row of grid.
func smoothRows(grid [][]float64, sigma float64, mode boundaryMode) [][]float64 {
	out := make([][]float64, len(grid))
	for i, row := range grid {
		out[i] = gaussian1D(row, sigma, mode)
	}
	return out
}

// smoothColumns applies gaussian1D down every column of grid.
func smoothColumns(grid [][]float64, sigma float64, mode boundaryMode) [][]float64 {
	out := make([][]float64, len(grid))
	for i := range out {
		out[i] = make([]float64, len(grid[i]))
	}
	if len(grid) == 0 {
		return out
	}

	col := make([]float64, len(grid))
	for c := range grid[0] {
		for r := range grid {
			col[r] = grid[r][c]
		}
		for r, v := range gaussian1D(col, sigma, mode) {
			out[r][c] = v
		}
	}
	return out
}

// toMask rescales x in place onto [0,1]. A constant x is left untouched.
func toMask(x []float64) []float64 {
	if len(x) == 0 {
		return x
	}
	lo, hi := floats.Min(x), floats.Max(x)
	if hi == lo {
		return x
	}
	for i := range x {
		x[i] = (x[i] - lo) / (hi - lo)
	}
	return x
}

// stepMask is 0 below edge and 1 at or above it.
func stepMask(x []float64, edge float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if v >= edge {
			out[i] = 1
		}
	}
	return out
}

// resample interpolates y(t) linearly onto n evenly spaced points between
// t[0] and t[n-1]. t must be non decreasing.
func resample(t, y []float64) []float64 {
	n := len(t)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[0] = y[0]
		return out
	}

	grid := uniformGrid(t[0], t[n-1], n)
	j := 0
	for i, x := range grid {
		for j < n-2 && t[j+1] < x {
			j++
		}
		t0, t1 := t[j], t[j+1]
		if t1 == t0 {
			out[i] = y[j]
			continue
		}
		f := (x - t0) / (t1 - t0)
		f = math.Max(0, math.Min(1, f))
		out[i] = y[j] + f*(y[j+1]-y[j])
	}
	return out
}

// finite returns x with NaN and infinite samples replaced by zero. x is
// returned as is when every sample is finite.
func finite(x []float64) []float64 {
	var out []float64
	for i, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			continue
		}
		if out == nil {
			out = append([]float64(nil), x...)
		}
		out[i] = 0
	}
	if out == nil {
		return x
	}
	return out
}

func uniformGrid(from, to float64, n int) []float64 {
	if n == 1 {
		return []float64{from}
	}
	return floats.Span(make([]float64, n), from, to)
}

// samples returns the number of samples spanning duration at sample
// interval dt.
func samples(duration, dt float64) int {
	return int(math.Ceil(duration/dt - 1e-9))
}

// hann returns a symmetric Hann window of n points.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)
}

// paddedLen is n rounded up past the next fftBlock boundary.
func paddedLen(n int) int {
	return n + (fftBlock - n%fftBlock)
}

// rfftFreq returns the frequencies of the n/2+1 real FFT bins.
func rfftFreq(n int, dt float64) []float64 {
	f := make([]float64, n/2+1)
	for i := range f {
		f[i] = float64(i) / (float64(n) * dt)
	}
	return f
}

// fftFreqAbs returns |f| for all n bins in standard FFT order.
func fftFreqAbs(n int, dt float64) []float64 {
	f := make([]float64, n)
	for i := range f {
		k := i
		if i >= (n+1)/2 {
			k = i - n
		}
		f[i] = math.Abs(float64(k) / (float64(n) * dt))
	}
	return f
}

// spectrum computes the orthonormal magnitude spectrum of a zero padded
// window.
type spectrum struct {
	fft   *fourier.FFT
	n     int
	buf   []float64
	coeff []complex128
}

func newSpectrum(n int) *spectrum {
	return &spectrum{
		fft:   fourier.NewFFT(n),
		n:     n,
		buf:   make([]float64, n),
		coeff: make([]complex128, n/2+1),
	}
}

// magnitude writes |X_k|/sqrt(n) of the padded window x·w into dst.
func (s *spectrum) magnitude(dst, x, w []float64) {
	clear(s.buf)
	for i := range w {
		s.buf[i] = x[i] * w[i]
	}
	s.coeff = s.fft.Coefficients(s.coeff, s.buf)

	norm := 1 / math.Sqrt(float64(s.n))
	for i, c := range s.coeff {
		dst[i] = cmplx.Abs(c) * norm
	}
}

// histogram counts x into bins equal width bins over [lo, hi]. Values
// outside the range are ignored; hi falls into the last bin.
func histogram(x []float64, bins int, lo, hi float64) []float64 {
	counts := make([]float64, bins)
	for _, v := range x {
		if b, ok := binIndex(v, bins, lo, hi); ok {
			counts[b]++
		}
	}
	return counts
}

func binIndex(v float64, bins int, lo, hi float64) (int, bool) {
	if math.IsNaN(v) || v < lo || v > hi || hi <= lo {
		return 0, false
	}
	b := int((v - lo) / (hi - lo) * float64(bins))
	if b >= bins {
		b = bins - 1
	}
	return b, true
}
