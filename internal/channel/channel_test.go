package channel

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/bbl-analyzer/internal/bbl"
	"github.com/roman-kulish/bbl-analyzer/internal/diag"
)

// channels returns every array of s keyed by its channel name.
func channels(s *Set) map[string][]float64 {
	m := map[string][]float64{
		"time":     s.Time,
		"throttle": s.Throttle,
	}
	if s.MotorMax != nil {
		m["motorMax"] = s.MotorMax
	}
	for i, a := range s.Axes {
		m[fmt.Sprintf("rcCommand[%d]", i)] = a.RC
		m[fmt.Sprintf("p[%d]", i)] = a.P
		m[fmt.Sprintf("i[%d]", i)] = a.I
		m[fmt.Sprintf("d[%d]", i)] = a.D
		m[fmt.Sprintf("pidSum[%d]", i)] = a.PIDSum
		m[fmt.Sprintf("debug[%d]", i)] = a.Debug
		m[fmt.Sprintf("gyro[%d]", i)] = a.Gyro
	}
	return m
}

func newTable(fields []string, rows int, fill func(row, col int) float64) *bbl.Table {
	log := &bbl.Log{FieldNames: fields}
	for r := 0; r < rows; r++ {
		values := make([]float64, len(fields))
		for c := range fields {
			values[c] = fill(r, c)
		}
		log.Frames = append(log.Frames, bbl.Frame{Type: bbl.FrameIntra, Values: values})
	}
	return bbl.NewTable(log)
}

var fullFields = []string{
	"loopIteration", "time (us)",
	"axisP[0]", "axisP[1]", "axisP[2]",
	"axisI[0]", "axisI[1]", "axisI[2]",
	"axisD[0]", "axisD[1]", "axisD[2]",
	"rcCommand[0]", "rcCommand[1]", "rcCommand[2]", "rcCommand[3]",
	"gyroADC[0]", "gyroADC[1]", "gyroADC[2]",
	"debug[0]", "debug[1]", "debug[2]", "debug[3]",
	"motor[0]", "motor[1]", "motor[2]", "motor[3]",
}

func TestExtractComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	table := newTable(fullFields, 200, func(row, col int) float64 {
		switch fullFields[col] {
		case "time (us)":
			return float64(row) * 1000
		case "debug[3]":
			return 0
		default:
			return float64(rng.Intn(2000) - 1000)
		}
	})

	var c diag.Collector
	set := Extract(table, false, &c)

	assert.Empty(t, c.Warnings())
	assert.True(t, set.DebugModeValid)
	assert.Nil(t, set.MotorMax)
	assert.InDelta(t, 0.199, set.Time[199], 1e-12)

	for name, col := range channels(set) {
		assert.Len(t, col, 200, name)
	}

	for i, a := range set.Axes {
		for j := range a.PIDSum {
			if a.PIDSum[j] != a.P[j]+a.I[j]+a.D[j] {
				t.Fatalf("axis %d frame %d: PIDSum %v != %v + %v + %v", i, j, a.PIDSum[j], a.P[j], a.I[j], a.D[j])
			}
		}
	}
}

func TestExtractMissingChannels(t *testing.T) {
	fields := []string{"time", "rcCommand[0]", "rcCommand[1]", "rcCommand[2]", "rcCommand[3]", "axisP[0]", "ugyroADC[0]", "ugyroADC[1]", "debug[3]"}
	table := newTable(fields, 10, func(row, col int) float64 {
		if fields[col] == "time" {
			return float64(row) * 0.5
		}
		if fields[col] == "debug[3]" && row == 4 {
			return 1
		}
		return float64(col)
	})

	var c diag.Collector
	set := Extract(table, false, &c)

	subjects := map[string]bool{}
	for _, w := range c.Warnings() {
		assert.Equal(t, diag.MissingChannel, w.Kind)
		subjects[w.Subject] = true
	}

	for _, want := range []string{
		"axisP[1]", "axisP[2]",
		"axisI[0]", "axisI[1]",
		"axisD[0]", "axisD[1]", "axisD[2]",
		"debug[0]", "debug[1]", "debug[2]",
		"gyro[2]",
	} {
		assert.True(t, subjects[want], "expected warning for %s", want)
	}
	assert.False(t, subjects["axisI[2]"], "yaw I term absence is silent")
	assert.False(t, subjects["gyro[0]"])
	assert.Len(t, c.Warnings(), 11)

	assert.False(t, set.DebugModeValid)
	assert.Equal(t, 4.5, set.Time[9], "time falls back to a seconds field")
	assert.Equal(t, 6.0, set.Axes[0].Gyro[0])
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, set.Axes[2].Gyro)
	for name, col := range channels(set) {
		assert.Len(t, col, 10, name)
	}
}

func TestGyroPriority(t *testing.T) {
	fields := []string{"ugyroADC[0]", "gyroData[0]", "gyroADC[0]"}
	table := newTable(fields, 3, func(row, col int) float64 { return float64(col + 1) })

	col, name, ok := Lookup(table, "gyroADC[0]", "gyroData[0]", "ugyroADC[0]")
	require.True(t, ok)
	assert.Equal(t, "gyroADC[0]", name)
	assert.Equal(t, []float64{3, 3, 3}, col)

	col, name, ok = Lookup(table, "gyroData[1]", "missing")
	assert.False(t, ok)
	assert.Empty(t, name)
	assert.Equal(t, []float64{0, 0, 0}, col)
}

func TestExtractMotorsAsThrottle(t *testing.T) {
	motors := [][]float64{
		{100, 900, 300},
		{200, 100, 1500},
		{50, 950, 10},
		{400, 0, 20},
	}
	fields := []string{"time (us)", "rcCommand[3]", "motor[0]", "motor[1]", "motor[2]", "motor[3]"}
	table := newTable(fields, 3, func(row, col int) float64 {
		switch {
		case col == 0:
			return float64(row)
		case col == 1:
			return 1500
		default:
			return motors[col-2][row]
		}
	})

	set := Extract(table, true, nil)
	assert.True(t, set.MotorsAsThrottle)
	assert.Equal(t, []float64{400, 950, 1500}, set.MotorMax)
	assert.Equal(t, set.MotorMax, set.Throttle)
	assert.True(t, set.DebugModeValid, "absent debug[3] counts as zero")
}
