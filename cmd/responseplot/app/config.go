package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
)

const (
	defaultWidth  = 10.0 // inches
	defaultHeight = 6.0  // inches
)

var validFormats = map[string]struct{}{
	"png":  {},
	"jpeg": {},
	"svg":  {},
	"pdf":  {},
}

type Config struct {
	DBPath     string
	SessionID  int64
	OutputFile string
	Format     string
	Width      float64
	Height     float64
}

func NewConfig() *Config {
	return &Config{
		Format: "png",
		Width:  defaultWidth,
		Height: defaultHeight,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return parseConfig(flag.CommandLine, os.Args[1:])
}

func parseConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.SessionID, "s", 1, "Session ID")
	fs.StringVar(&c.OutputFile, "o", "", "Output file name prefix; the plot name and format are appended")
	fs.StringVar(&c.Format, "f", c.Format, "Output format. [png, jpeg, svg, pdf]")
	fs.Float64Var(&c.Width, "width", c.Width, "Plot width in inches")
	fs.Float64Var(&c.Height, "height", c.Height, "Plot height in inches")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c.Format = strings.ToLower(c.Format)

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID <= 0 {
		err = errors.New("session id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validFormats[c.Format]; !ok {
		err = fmt.Errorf("invalid output format: %s", c.Format)
	} else if c.Width <= 0 || c.Height <= 0 {
		err = fmt.Errorf("invalid plot size %gx%g", c.Width, c.Height)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}
	return c, nil
}

// OutputPath returns the file the named plot is written to.
func (c *Config) OutputPath(name string) string {
	return fmt.Sprintf("%s_%s.%s", c.OutputFile, name, c.Format)
}
