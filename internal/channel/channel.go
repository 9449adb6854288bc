// Package channel extracts the canonical channels of a session from its
// decoded frame table.
package channel

import (
	"fmt"
	"slices"

	"github.com/roman-kulish/bbl-analyzer/internal/bbl"
	"github.com/roman-kulish/bbl-analyzer/internal/diag"
)

// Axes is the number of control axes: roll, pitch, yaw.
const Axes = 3

// Motors is the number of motor outputs considered for the throttle proxy.
const Motors = 4

const (
	fieldTimeMicros = "time (us)"
	fieldTime       = "time"
	fieldDebugMode  = "debug[3]"
)

// gyroFamilies are the field name families gyro readings have been
// written under, in lookup priority.
var gyroFamilies = []string{"gyroADC", "gyroData", "ugyroADC"}

// Axis holds the channels of one control axis.
type Axis struct {
	RC     []float64 // rcCommand
	P      []float64 // P term output
	I      []float64 // I term
	D      []float64 // D term
	PIDSum []float64 // P + I + D
	Debug  []float64
	Gyro   []float64
}

// Set is the canonical channel set of one session. Every non nil slice has
// Len elements.
type Set struct {
	Time     []float64 // seconds
	Throttle []float64 // raw stick throttle, or MotorMax in motors mode
	MotorMax []float64 // nil unless MotorsAsThrottle
	Axes     [Axes]Axis

	DebugModeValid   bool
	MotorsAsThrottle bool
}

// Len returns the frame count.
func (s *Set) Len() int {
	return len(s.Time)
}

// Lookup returns the first candidate column present in t. When none is
// present it returns a zero array of t.Len() elements and ok is false.
func Lookup(t *bbl.Table, candidates ...string) (col []float64, name string, ok bool) {
	for _, c := range candidates {
		if col, ok = t.Column(c); ok {
			return col, c, true
		}
	}
	return make([]float64, t.Len()), "", false
}

type extractor struct {
	table    *bbl.Table
	reporter diag.Reporter
}

// required looks a channel up and reports a MissingChannel warning when it
// falls back to zeros.
func (e *extractor) required(channel string, candidates ...string) []float64 {
	col, _, ok := Lookup(e.table, candidates...)
	if !ok {
		e.reporter.Warn(diag.Warning{
			Kind:    diag.MissingChannel,
			Session: diag.NoSession,
			Subject: channel,
			Message: fmt.Sprintf("no %s trace found, using zeros", channel),
		})
	}
	return col
}

// Extract builds the channel set of one session.
func Extract(t *bbl.Table, motorsAsThrottle bool, r diag.Reporter) *Set {
	if r == nil {
		r = diag.Nop
	}
	e := extractor{table: t, reporter: r}

	s := Set{MotorsAsThrottle: motorsAsThrottle}
	s.Time = e.time()

	if motorsAsThrottle {
		s.MotorMax = e.motorMax()
		s.Throttle = s.MotorMax
	} else {
		s.Throttle = e.required("rcCommand[3]", "rcCommand[3]")
	}

	debugMode, _, _ := Lookup(t, fieldDebugMode)
	s.DebugModeValid = !slices.ContainsFunc(debugMode, func(v float64) bool { return v != 0 })

	for i := range s.Axes {
		a := &s.Axes[i]

		a.RC = e.required(fmt.Sprintf("rcCommand[%d]", i), fmt.Sprintf("rcCommand[%d]", i))
		a.Debug = e.required(fmt.Sprintf("debug[%d]", i), fmt.Sprintf("debug[%d]", i))
		a.P = e.required(fmt.Sprintf("axisP[%d]", i), fmt.Sprintf("axisP[%d]", i))
		a.D = e.required(fmt.Sprintf("axisD[%d]", i), fmt.Sprintf("axisD[%d]", i))

		if i < 2 {
			a.I = e.required(fmt.Sprintf("axisI[%d]", i), fmt.Sprintf("axisI[%d]", i))
		} else {
			// yaw usually has no I term logged
			a.I, _, _ = Lookup(t, fmt.Sprintf("axisI[%d]", i))
		}

		candidates := make([]string, len(gyroFamilies))
		for j, family := range gyroFamilies {
			candidates[j] = fmt.Sprintf("%s[%d]", family, i)
		}
		a.Gyro = e.required(fmt.Sprintf("gyro[%d]", i), candidates...)

		a.PIDSum = make([]float64, len(a.P))
		for j := range a.PIDSum {
			a.PIDSum[j] = a.P[j] + a.I[j] + a.D[j]
		}
	}

	return &s
}

func (e *extractor) time() []float64 {
	if col, ok := e.table.Column(fieldTimeMicros); ok {
		for i := range col {
			col[i] *= 1e-6
		}
		return col
	}
	return e.required("time", fieldTime)
}

func (e *extractor) motorMax() []float64 {
	var out []float64
	for m := 0; m < Motors; m++ {
		name := fmt.Sprintf("motor[%d]", m)
		col := e.required(name, name)
		if out == nil {
			out = col
			continue
		}
		for i, v := range col {
			out[i] = max(out[i], v)
		}
	}
	return out
}
