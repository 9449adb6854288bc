package bbl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	fields := make([]string, 50)
	for i := range fields {
		fields[i] = fmt.Sprintf("f%d", i)
	}
	values := make([]float64, 50)
	for i := range values {
		values[i] = float64(i)
	}

	log := &Log{
		FieldNames: fields,
		Frames: []Frame{
			{Type: FrameIntra, Values: values},
			{Type: FrameGPS, Values: []float64{99, 99}},
			{Type: FrameInter, Values: []float64{7}},
			{Type: FrameGPSHome, Values: []float64{99}},
		},
	}

	table := NewTable(log)
	assert.Equal(t, 2, table.Len())
	assert.Len(t, table.Fields(), MaxFields)
	_, ok := table.Column("f42")
	assert.False(t, ok, "fields past the limit are dropped")
	_, ok = table.Column("f41")
	assert.True(t, ok)

	col, ok := table.Column("f0")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 7}, col)

	col, ok = table.Column("f41")
	require.True(t, ok)
	assert.Equal(t, []float64{41, 0}, col, "short frames are zero padded")

	_, ok = table.Column("missing")
	assert.False(t, ok)
}

func TestReadHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]string
		wantErr error
	}{
		{
			name:  "header block followed by binary",
			input: "H Product:Blackbox flight data recorder by Nicholas Sherlock\nH Firmware type:Cleanflight\nH rollPID:45,80,20\nI\x01\x02\x03",
			want: map[string]string{
				"Product":       "Blackbox flight data recorder by Nicholas Sherlock",
				"Firmware type": "Cleanflight",
				"rollPID":       "45,80,20",
			},
		},
		{
			name:  "value with colon and crlf",
			input: "H Firmware date:Jan  1 2021 10:11:12\r\n",
			want:  map[string]string{"Firmware date": "Jan  1 2021 10:11:12"},
		},
		{
			name:    "no header",
			input:   "\x00\x01binary",
			wantErr: ErrNoHeaders,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadHeaders(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCSV(t *testing.T) {
	d := NewExternalDecoder("")
	input := "loopIteration, time (us), flightModeFlags (flags)\n" +
		"0, 1000, ANGLE_MODE\n" +
		"1, 2000, 0\n" +
		"2, 3000\n" +
		"3, 4000, 0\n"

	var log Log
	require.NoError(t, d.parseCSV(strings.NewReader(input), &log))
	assert.Equal(t, []string{"loopIteration", "time (us)", "flightModeFlags (flags)"}, log.FieldNames)
	require.Len(t, log.Frames, 3)
	assert.Equal(t, []float64{0, 1000, 0}, log.Frames[0].Values)
	assert.Equal(t, []float64{3, 4000, 0}, log.Frames[2].Values)
}

func TestParseValuesNonFinite(t *testing.T) {
	got := parseValues([]string{" 1.5", "NaN", "nan", "+Inf", "-inf", "1e400", "ANGLE_MODE", "-2"})
	assert.Equal(t, []float64{1.5, 0, 0, 0, 0, 0, 0, -2}, got)
}

func TestParseCSVTooManyErrors(t *testing.T) {
	d := NewExternalDecoder("", WithParseErrorsThreshold(2))
	input := "a, b\n1\n2\n3, 4\n"

	var log Log
	err := d.parseCSV(strings.NewReader(input), &log)
	assert.ErrorIs(t, err, ErrTooManyParseErrors)
}

func TestExternalDecoderDecode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the decoder")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake_decode")
	body := "#!/bin/sh\nprintf 'time (us), gyroADC[0]\\n100, 1.5\\n200, -2\\n'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	session := filepath.Join(dir, "LOG00001_temp1.BFL")
	require.NoError(t, os.WriteFile(session, []byte("H Product:Blackbox\nH Firmware type:Betaflight\n\x00\x01"), 0o644))

	log, err := NewExternalDecoder(script).Decode(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, "Betaflight", log.Headers["Firmware type"])
	assert.Equal(t, []string{"time (us)", "gyroADC[0]"}, log.FieldNames)
	require.Len(t, log.Frames, 2)
	assert.Equal(t, []float64{200, -2}, log.Frames[1].Values)
}

func TestExternalDecoderMissingFile(t *testing.T) {
	_, err := NewExternalDecoder("").Decode(context.Background(), filepath.Join(t.TempDir(), "nope.bfl"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
