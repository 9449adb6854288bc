package app

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(args ...string) (*Config, error) {
	fs := flag.NewFlagSet("noisemap", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return parseConfig(fs, args)
}

func TestParseConfig(t *testing.T) {
	c, err := parse("-db", "results.sqlite", "-s", "3", "-axis", "Pitch", "-source", "debug", "-o", "out/map", "-f", "JPEG", "-theme", "marine")
	require.NoError(t, err)

	assert.Equal(t, "results.sqlite", c.DBPath)
	assert.EqualValues(t, 3, c.SessionID)
	assert.Equal(t, []string{"pitch"}, c.Axes)
	assert.Equal(t, SourceDebug, c.Source)
	assert.Equal(t, ImageFormat(ImageJPEG), c.Format)
	assert.Equal(t, MarineTheme, c.Theme)
	assert.Equal(t, "out/map_pitch_debug.jpeg", c.OutputPath("pitch"))
}

func TestParseConfigDefaults(t *testing.T) {
	c, err := parse("-db", "results.sqlite", "-o", "map")
	require.NoError(t, err)

	assert.EqualValues(t, 1, c.SessionID)
	assert.Equal(t, []string{"roll", "pitch", "yaw"}, c.Axes)
	assert.Equal(t, SourceGyro, c.Source)
	assert.Equal(t, ImageFormat(ImagePNG), c.Format)
	assert.Equal(t, InfernoTheme, c.Theme)
	assert.Equal(t, "map_yaw_gyro.png", c.OutputPath("yaw"))
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no db", args: []string{"-o", "map"}, want: "db path is required"},
		{name: "bad session", args: []string{"-db", "x", "-o", "map", "-s", "0"}, want: "session id is required"},
		{name: "no output", args: []string{"-db", "x"}, want: "output file is required"},
		{name: "bad axis", args: []string{"-db", "x", "-o", "map", "-axis", "throttle"}, want: "invalid axis: throttle"},
		{name: "bad source", args: []string{"-db", "x", "-o", "map", "-source", "accel"}, want: "invalid noise source: accel"},
		{name: "bad format", args: []string{"-db", "x", "-o", "map", "-f", "gif"}, want: "invalid image format: gif"},
		{name: "bad theme", args: []string{"-db", "x", "-o", "map", "-theme", "neon"}, want: "invalid color theme: neon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(tt.args...)
			assert.EqualError(t, err, tt.want)
		})
	}
}
