// Package trace slices a session's channel set into one trace per control
// axis, attaching the gain and throttle metadata the analysis needs.
package trace

import (
	"fmt"
	"strings"

	"github.com/roman-kulish/bbl-analyzer/internal/channel"
	"github.com/roman-kulish/bbl-analyzer/internal/diag"
	"github.com/roman-kulish/bbl-analyzer/internal/header"
)

const (
	// StickMin is the raw stick value of zero throttle.
	StickMin = 1000.0

	// DefaultMaxThrottle is used when the header has no usable maxThrottle.
	DefaultMaxThrottle = 2000.0

	// MotorScale converts the 0..2000 motor output to percent.
	MotorScale = 20.0
)

// AxisNames lists the axes in channel order.
var AxisNames = [channel.Axes]string{"roll", "pitch", "yaw"}

// firmware families without a usable P gain or TPA breakpoint
var noGainFirmware = []string{"KISS", "Raceflight"}

// Axis is the view of one control axis the analyzer works on.
type Axis struct {
	Name     string
	Time     []float64
	Gyro     []float64
	RCInput  []float64
	Throttle []float64 // percent
	PErr     []float64 // P term output
	DErr     []float64
	ITerm    []float64
	PIDSum   []float64
	Debug    []float64

	P          float64 // static P gain
	TPAPercent float64
}

// Build returns the roll, pitch and yaw traces of a session.
func Build(set *channel.Set, head header.Record, r diag.Reporter) [channel.Axes]Axis {
	if r == nil {
		r = diag.Nop
	}

	throttle := throttlePercent(set, head, r)
	noGain := isNoGainFirmware(head.Get(header.FirmwareType))

	tpa := 0.0
	if !noGain {
		bp, err := head.Float(header.TPABreakpoint)
		if err != nil {
			warnHeader(r, header.TPABreakpoint, err, "using 0% TPA")
		} else {
			tpa = (bp - StickMin) / 10
		}
	}

	var traces [channel.Axes]Axis
	for i := range traces {
		a := set.Axes[i]
		traces[i] = Axis{
			Name:       AxisNames[i],
			Time:       set.Time,
			Gyro:       a.Gyro,
			RCInput:    a.RC,
			Throttle:   throttle,
			PErr:       a.P,
			DErr:       a.D,
			ITerm:      a.I,
			PIDSum:     a.PIDSum,
			Debug:      a.Debug,
			P:          1,
			TPAPercent: tpa,
		}

		if noGain {
			continue
		}

		key := AxisNames[i] + "PID"
		p, err := head.FirstFloat(key)
		if err != nil || p == 0 {
			if err == nil {
				err = fmt.Errorf("header %s: zero P gain", key)
			}
			warnHeader(r, key, err, "using P gain 1")
			continue
		}
		traces[i].P = p
	}

	return traces
}

func isNoGainFirmware(fwType string) bool {
	for _, fw := range noGainFirmware {
		if strings.Contains(fwType, fw) {
			return true
		}
	}
	return false
}

func throttlePercent(set *channel.Set, head header.Record, r diag.Reporter) []float64 {
	out := make([]float64, len(set.Throttle))

	if set.MotorsAsThrottle {
		for i, v := range set.Throttle {
			out[i] = v / MotorScale
		}
		return out
	}

	maxThrottle, err := head.Float(header.MaxThrottle)
	if err != nil || maxThrottle <= StickMin {
		if err == nil {
			err = fmt.Errorf("header %s: %v is not above %v", header.MaxThrottle, maxThrottle, StickMin)
		}
		warnHeader(r, header.MaxThrottle, err, fmt.Sprintf("using %v", DefaultMaxThrottle))
		maxThrottle = DefaultMaxThrottle
	}

	// minthrottle is a motor output limit, the stick range starts at StickMin
	for i, v := range set.Throttle {
		out[i] = (v - StickMin) / (maxThrottle - StickMin) * 100
	}
	return out
}

func warnHeader(r diag.Reporter, key string, err error, fallback string) {
	r.Warn(diag.Warning{
		Kind:    diag.HeaderValue,
		Session: diag.NoSession,
		Subject: key,
		Message: "unusable header value, " + fallback,
		Err:     err,
	})
}
