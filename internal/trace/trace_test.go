package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roman-kulish/bbl-analyzer/internal/channel"
	"github.com/roman-kulish/bbl-analyzer/internal/diag"
	"github.com/roman-kulish/bbl-analyzer/internal/header"
)

func newSet(throttle []float64, motors bool) *channel.Set {
	n := len(throttle)
	set := &channel.Set{
		Time:             make([]float64, n),
		Throttle:         throttle,
		MotorsAsThrottle: motors,
	}
	for i := range set.Axes {
		set.Axes[i] = channel.Axis{
			RC: make([]float64, n), P: make([]float64, n), I: make([]float64, n),
			D: make([]float64, n), PIDSum: make([]float64, n), Debug: make([]float64, n),
			Gyro: make([]float64, n),
		}
	}
	return set
}

func TestThrottleBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		throttle []float64
		motors   bool
		head     map[string]string
		want     []float64
	}{
		{
			name:     "stick throttle min and max",
			throttle: []float64{1000, 1500, 2000},
			head:     map[string]string{"minthrottle": "1000", "maxthrottle": "2000"},
			want:     []float64{0, 50, 100},
		},
		{
			name:     "stick throttle with lower max",
			throttle: []float64{1000, 1850},
			head:     map[string]string{"minthrottle": "1000", "maxthrottle": "1850"},
			want:     []float64{0, 100},
		},
		{
			name:     "minthrottle does not shift the zero point",
			throttle: []float64{1000, 1070, 1500, 2000},
			head:     map[string]string{"minthrottle": "1070", "maxthrottle": "2000"},
			want:     []float64{0, 7, 50, 100},
		},
		{
			name:     "motor max",
			throttle: []float64{0, 1000, 2000},
			motors:   true,
			want:     []float64{0, 50, 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			traces := Build(newSet(tt.throttle, tt.motors), header.Normalize(tt.head), nil)
			for _, tr := range traces {
				assert.InDeltaSlice(t, tt.want, tr.Throttle, 1e-9)
			}
		})
	}
}

func TestMaxThrottleFallback(t *testing.T) {
	var c diag.Collector
	traces := Build(newSet([]float64{1500}, false), header.Normalize(nil), &c)

	assert.InDelta(t, 50, traces[0].Throttle[0], 1e-9)
	assert.Equal(t, 1, countSubject(&c, header.MaxThrottle))
}

func TestGainAndTPA(t *testing.T) {
	tests := []struct {
		name     string
		head     map[string]string
		wantP    [3]float64
		wantTPA  float64
		warnings int
	}{
		{
			name: "betaflight",
			head: map[string]string{
				"Firmware type":  "Cleanflight",
				"rollPID":        "45,80,20",
				"pitchPID":       "47,84,22",
				"yawPID":         "45,80,0",
				"tpa_breakpoint": "1350",
				"maxthrottle":    "2000",
			},
			wantP:   [3]float64{45, 47, 45},
			wantTPA: 35,
		},
		{
			name: "kiss",
			head: map[string]string{
				"Firmware type":  "KISS",
				"rollPID":        "5,3,1",
				"tpa_breakpoint": "1500",
				"maxthrottle":    "2000",
			},
			wantP:   [3]float64{1, 1, 1},
			wantTPA: 0,
		},
		{
			name: "raceflight",
			head: map[string]string{
				"Firmware type": "Raceflight One",
				"maxthrottle":   "2000",
			},
			wantP:   [3]float64{1, 1, 1},
			wantTPA: 0,
		},
		{
			name: "missing pid triplets",
			head: map[string]string{
				"Firmware type": "Cleanflight",
				"rollPID":       "45,80,20",
				"maxthrottle":   "2000",
			},
			wantP:    [3]float64{45, 1, 1},
			wantTPA:  -100,
			warnings: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c diag.Collector
			traces := Build(newSet([]float64{1200}, false), header.Normalize(tt.head), &c)

			for i, tr := range traces {
				assert.Equal(t, AxisNames[i], tr.Name)
				assert.Equal(t, tt.wantP[i], tr.P)
				assert.Equal(t, tt.wantTPA, tr.TPAPercent)
			}
			assert.Equal(t, tt.warnings, c.Count(diag.HeaderValue))
		})
	}
}

func countSubject(c *diag.Collector, subject string) int {
	var n int
	for _, w := range c.Warnings() {
		if w.Subject == subject {
			n++
		}
	}
	return n
}
