package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/roman-kulish/bbl-analyzer/internal/trace"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"

	allAxes = "all"
)

type ImageFormat string

type Config struct {
	DBPath     string
	SessionID  int64
	Axes       []string
	Source     Source
	OutputFile string
	Format     ImageFormat
	Theme      ColorTheme
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Axes:   slices.Clone(trace.AxisNames[:]),
		Source: SourceGyro,
		Format: ImagePNG,
		Theme:  InfernoTheme,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return parseConfig(flag.CommandLine, nil)
}

func parseConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var axis, source, imageFormat, theme string
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.SessionID, "s", 1, "Session ID")
	fs.StringVar(&axis, "axis", allAxes, "Axis to render. [roll, pitch, yaw, all]")
	fs.StringVar(&source, "source", string(SourceGyro), "Noise source. [gyro, debug, dterm]")
	fs.StringVar(&c.OutputFile, "o", "", "Output file name prefix; the axis and format are appended")
	fs.StringVar(&imageFormat, "f", ImagePNG, "Output image format. [png, jpeg]")
	fs.StringVar(&theme, "theme", string(InfernoTheme), "Color theme. [inferno, classic, grayscale, jungle, thermal, marine]")

	if args == nil {
		args = os.Args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	axis = strings.ToLower(axis)
	imageFormat = strings.ToLower(imageFormat)

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID <= 0 {
		err = errors.New("session id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if axis != allAxes && !slices.Contains(trace.AxisNames[:], axis) {
		err = fmt.Errorf("invalid axis: %s", axis)
	} else if _, ok := validSources[Source(strings.ToLower(source))]; !ok {
		err = fmt.Errorf("invalid noise source: %s", source)
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if _, ok := validThemes[ColorTheme(strings.ToLower(theme))]; !ok {
		err = fmt.Errorf("invalid color theme: %s", theme)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	if axis != allAxes {
		c.Axes = []string{axis}
	}
	c.Source = Source(strings.ToLower(source))
	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(strings.ToLower(theme))
	return c, nil
}

// OutputPath returns the file the map of axis is written to.
func (c *Config) OutputPath(axis string) string {
	return fmt.Sprintf("%s_%s_%s.%s", c.OutputFile, axis, c.Source, c.Format)
}
