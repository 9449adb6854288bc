package analysis

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(2)
	assert.Len(t, k, 17)
	assert.InDelta(t, 1, floats.Sum(k), 1e-12)
	assert.Equal(t, 8, floats.MaxIdx(k))
	assert.InDelta(t, k[0], k[16], 1e-15)
}

func TestGaussian1D(t *testing.T) {
	constant := []float64{3, 3, 3, 3, 3, 3, 3, 3}

	reflected := gaussian1D(constant, 1.5, modeReflect)
	for _, v := range reflected {
		assert.InDelta(t, 3, v, 1e-12)
	}

	zeroPadded := gaussian1D(constant, 1.5, modeConstant)
	assert.Less(t, zeroPadded[0], 3.0, "edges lose mass outside the input")
	assert.InDelta(t, zeroPadded[0], zeroPadded[7], 1e-12)

	assert.Equal(t, constant, gaussian1D(constant, 0, modeConstant))
	assert.Empty(t, gaussian1D(nil, 1, modeReflect))
}

func TestReflectIndex(t *testing.T) {
	tests := []struct {
		idx  int
		want int
	}{
		{idx: 0, want: 0},
		{idx: 3, want: 3},
		{idx: -1, want: 0},
		{idx: -2, want: 1},
		{idx: 4, want: 3},
		{idx: 5, want: 2},
		{idx: 9, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reflectIndex(tt.idx, 4), "index %d", tt.idx)
	}
}

func TestResample(t *testing.T) {
	irregular := []float64{0, 0.5, 3, 4}
	y := []float64{0, 1, 6, 8}

	got := resample(irregular, y)
	want := []float64{0, 8.0 / 3, 16.0 / 3, 8}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("resample() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []float64{5}, resample([]float64{1}, []float64{5}))
	assert.Empty(t, resample(nil, nil))
}

func TestResampleDuplicateTimestamps(t *testing.T) {
	got := resample([]float64{0, 1, 1, 2}, []float64{0, 2, 4, 6})
	require.Len(t, got, 4)
	for _, v := range got {
		assert.False(t, math.IsNaN(v))
	}
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 6.0, got[3])
}

func TestSamplesAndPadding(t *testing.T) {
	assert.Equal(t, 300, samples(0.3, 0.001))
	assert.Equal(t, 1000, samples(1, 0.001))
	assert.Equal(t, 4, samples(1, 0.3))

	assert.Equal(t, 1024, paddedLen(300))
	assert.Equal(t, 2048, paddedLen(1024))
	assert.Equal(t, 2048, paddedLen(1500))
}

func TestRFFTFreq(t *testing.T) {
	f := rfftFreq(8, 0.125)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, f)

	abs := fftFreqAbs(8, 0.125)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 3, 2, 1}, abs)
}

func TestSpectrumMagnitude(t *testing.T) {
	const n = 64
	x := make([]float64, n)
	w := make([]float64, n)
	for i := range x {
		x[i] = math.Cos(2 * math.Pi * 8 * float64(i) / n)
		w[i] = 1
	}

	mag := make([]float64, n/2+1)
	newSpectrum(n).magnitude(mag, x, w)
	assert.Equal(t, 8, floats.MaxIdx(mag))
	assert.InDelta(t, n/2/math.Sqrt(n), mag[8], 1e-9)
	assert.InDelta(t, 0, mag[3], 1e-9)
}

func TestHistogram(t *testing.T) {
	got := histogram([]float64{0, 9.9, 10, 55, 100, -1, 101, math.NaN()}, 10, 0, 100)
	assert.Equal(t, []float64{2, 1, 0, 0, 0, 1, 0, 0, 0, 1}, got)
}

func TestMasks(t *testing.T) {
	assert.Equal(t, []float64{0, 0, 1, 1}, stepMask([]float64{1, 2, 3, 4}, 3))
	assert.Equal(t, []float64{0, 0.5, 1}, toMask([]float64{2, 4, 6}))
	assert.Equal(t, []float64{7, 7}, toMask([]float64{7, 7}))

	assert.Equal(t, []bool{false, true, true}, aboveMask([]float64{1, 5, 6}, 2, 2))
	assert.Equal(t, []bool{false, false, false}, aboveMask([]float64{1, 5, 1}, 2, 2))
}

func TestWienerRegularization(t *testing.T) {
	reg := wienerRegularization(1024, 0.001, 25)
	require.Len(t, reg, 513)

	assert.Less(t, reg[0], 1.0, "passband is barely regularized")
	assert.Greater(t, reg[400], 1e6, "stopband is strongly regularized")
	// about 10, 39 and 98 Hz
	assert.Less(t, reg[10], reg[40])
	assert.Less(t, reg[40], reg[100])
}

func TestOptionsWithDefaults(t *testing.T) {
	got := Options{HighThreshold: 300, LandingCut: -1}.withDefaults()

	want := DefaultOptions()
	want.HighThreshold = 300
	want.LandingCut = -1
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("withDefaults() mismatch (-want +got):\n%s", diff)
	}
}

func TestLandingCut(t *testing.T) {
	s, ok := NewAnalyzer().uniform(newTrace(6000, 50))
	require.True(t, ok)

	count := func(o Options) int {
		return NewAnalyzer(WithOptions(o)).noiseWindows(s).count
	}

	whole := count(Options{LandingCut: -1})
	assert.Equal(t, 317, whole)
	assert.Equal(t, whole-106, count(Options{}), "default drops the last two seconds")
	assert.Equal(t, count(Options{}), count(Options{LandingCut: 0}))
	assert.Equal(t, whole-53, count(Options{LandingCut: 1}))
}
