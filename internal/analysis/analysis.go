// Package analysis derives the tuning diagnostics of one control axis:
// throttle binned noise maps, a filter transmission estimate, the throttle
// usage histogram and a step response estimated by deconvolution.
//
// Every series is first resampled onto a uniform time grid. Degenerate
// input (no time span, fewer samples than one window, all zero channels)
// yields placeholder output and a DegenerateAnalysis warning; only
// mismatched array lengths are errors.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"github.com/roman-kulish/bbl-analyzer/internal/diag"
	"github.com/roman-kulish/bbl-analyzer/internal/trace"
)

// ErrInvalidTrace is returned when the arrays of a trace disagree in length.
var ErrInvalidTrace = errors.New("invalid trace")

// pidScale converts the logged P term back to a rate error for a P gain of 1.
const pidScale = 0.032029

// Histogram is a probability distribution over equal width bins.
type Histogram struct {
	Edges       []float64 `json:"edges"`
	Probability []float64 `json:"probability"`
}

// Transmission is the fraction of noise energy passing the onboard filters,
// one value per noise map frequency bin.
type Transmission struct {
	Freq   []float64 `json:"freq"`
	Values []float64 `json:"values"`
}

// Result is the analysis of one axis.
type Result struct {
	Axis          string       `json:"axis"`
	GyroNoise     NoiseMap     `json:"gyroNoise"`
	DebugNoise    NoiseMap     `json:"debugNoise"`
	DTermNoise    NoiseMap     `json:"dTermNoise"`
	Transmission  Transmission `json:"transmission"`
	ThrottleUsage Histogram    `json:"throttleUsage"`
	StepResponse  StepResponse `json:"stepResponse"`
	P             float64      `json:"p"`
	TPAPercent    float64      `json:"tpaPercent"`
}

// WithOptions sets the numerical parameters.
func WithOptions(o Options) func(a *Analyzer) {
	return func(a *Analyzer) {
		a.opts = o.withDefaults()
	}
}

// WithReporter sets the warning reporter.
func WithReporter(r diag.Reporter) func(a *Analyzer) {
	return func(a *Analyzer) {
		a.reporter = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) func(a *Analyzer) {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// Analyzer runs the analysis of single axis traces. It holds no per trace
// state and is safe for concurrent use.
type Analyzer struct {
	opts     Options
	reporter diag.Reporter
	logger   *slog.Logger
}

// NewAnalyzer returns an Analyzer using DefaultOptions unless WithOptions
// is given.
func NewAnalyzer(options ...func(a *Analyzer)) *Analyzer {
	a := Analyzer{
		opts:     DefaultOptions(),
		reporter: diag.Nop,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&a)
	}

	return &a
}

// series is an axis trace on a uniform time grid.
type series struct {
	time, input, gyro, throttle, dErr, debug []float64
	dt                                       float64
}

// Analyze computes the result of one axis trace.
func (a *Analyzer) Analyze(ctx context.Context, tr trace.Axis) (*Result, error) {
	if err := validate(tr); err != nil {
		return nil, err
	}

	res := Result{
		Axis:          tr.Name,
		P:             tr.P,
		TPAPercent:    tr.TPAPercent,
		ThrottleUsage: a.throttleUsage(tr),
	}

	logger := a.logger.With(slog.String("axis", tr.Name))
	logger.Debug("analyzing trace", slog.Int("samples", len(tr.Time)))

	s, ok := a.uniform(tr)
	if !ok {
		a.degenerate(tr.Name, "trace", "no usable time span, skipping spectral analysis")
		res.GyroNoise = a.noisePlaceholder(nil)
		res.DebugNoise = res.GyroNoise
		res.DTermNoise = res.GyroNoise
		res.Transmission = transmission(res.GyroNoise, res.DebugNoise)
		res.StepResponse = a.responsePlaceholder(0, 0)
		return &res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	noise := a.noiseWindows(s)
	res.GyroNoise = a.noiseMap(tr.Name, "gyro", s, s.gyro, noise)
	res.DebugNoise = a.noiseMap(tr.Name, "debug", s, s.debug, noise)
	res.DTermNoise = a.noiseMap(tr.Name, "dterm", s, s.dErr, noise)
	res.Transmission = transmission(res.GyroNoise, res.DebugNoise)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.StepResponse = a.stepResponse(tr.Name, s)

	logger.Debug("trace analyzed",
		slog.Int("responseWindows", len(res.StepResponse.Windows)),
		slog.Bool("highResponse", res.StepResponse.High != nil))

	return &res, nil
}

func validate(tr trace.Axis) error {
	n := len(tr.Time)
	arrays := []struct {
		name string
		data []float64
	}{
		{"gyro", tr.Gyro},
		{"throttle", tr.Throttle},
		{"p_err", tr.PErr},
		{"d_err", tr.DErr},
		{"debug", tr.Debug},
	}
	for _, arr := range arrays {
		if len(arr.data) != n {
			return fmt.Errorf("%w: %s %s has %d samples, time has %d", ErrInvalidTrace, tr.Name, arr.name, len(arr.data), n)
		}
	}
	return nil
}

// uniform resamples the trace onto an evenly spaced time grid.
func (a *Analyzer) uniform(tr trace.Axis) (series, bool) {
	n := len(tr.Time)
	if n < 2 || !(tr.Time[n-1] > tr.Time[0]) {
		return series{}, false
	}

	p := tr.P
	if p == 0 {
		p = 1
	}
	gyro, pErr := finite(tr.Gyro), finite(tr.PErr)
	input := make([]float64, n)
	for i := range input {
		input[i] = gyro[i] + pErr[i]/(pidScale*p)
	}

	return series{
		time:     uniformGrid(tr.Time[0], tr.Time[n-1], n),
		input:    resample(tr.Time, input),
		gyro:     resample(tr.Time, gyro),
		throttle: resample(tr.Time, finite(tr.Throttle)),
		dErr:     resample(tr.Time, finite(tr.DErr)),
		debug:    resample(tr.Time, finite(tr.Debug)),
		dt:       (tr.Time[n-1] - tr.Time[0]) / float64(n-1),
	}, true
}

func (a *Analyzer) throttleUsage(tr trace.Axis) Histogram {
	bins := a.opts.UsageBins
	h := Histogram{
		Edges:       uniformGrid(0, 100, bins+1),
		Probability: histogram(tr.Throttle, bins, 0, 100),
	}

	total := floats.Sum(h.Probability)
	if total == 0 {
		a.degenerate(tr.Name, "throttle_usage", "no throttle samples within 0-100%")
		return h
	}
	floats.Scale(1/total, h.Probability)
	return h
}

// transmission compares the smoothed gyro and debug maps over the throttle
// bins the gyro map occupies.
func transmission(gyro, debug NoiseMap) Transmission {
	nf := len(gyro.Smoothed)
	t := Transmission{
		Freq:   make([]float64, nf),
		Values: make([]float64, nf),
	}
	copy(t.Freq, gyro.Freq)

	if debug.empty() || len(debug.Smoothed) != nf {
		return t
	}

	for f := 0; f < nf; f++ {
		var num, den float64
		for b, g := range gyro.Smoothed[f] {
			w := max(0, min(1, g))
			num += w * g
			den += w * debug.Smoothed[f][b]
		}
		if den <= 0 {
			continue
		}
		t.Values[f] = max(0, min(1, num/den))
	}
	return t
}

func (a *Analyzer) degenerate(axis, subject, msg string) {
	a.reporter.Warn(diag.Warning{
		Kind:    diag.DegenerateAnalysis,
		Session: diag.NoSession,
		Subject: axis + "/" + subject,
		Message: msg,
	})
}
