package app

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/bbl-analyzer/internal/analysis"
	"github.com/roman-kulish/bbl-analyzer/internal/bbl"
	"github.com/roman-kulish/bbl-analyzer/internal/session"
)

const defaultWorkers = 4

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Splitter SplitterConfig `yaml:"splitter"`
	Decoder  DecoderConfig  `yaml:"decoder"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// AnalysisConfig represents analysis settings
type AnalysisConfig struct {
	UseMotorsAsThrottle bool             `yaml:"useMotorsAsThrottle"`
	Workers             int              `yaml:"workers"`
	Options             analysis.Options `yaml:"options"`
}

// SplitterConfig represents session splitting settings
type SplitterConfig struct {
	MinSessionBytes int64  `yaml:"minSessionBytes"`
	ScratchName     string `yaml:"scratchName"`
	KeepScratch     bool   `yaml:"keepScratch"`
}

// DecoderConfig represents the external frame decoder settings
type DecoderConfig struct {
	Binary               string `yaml:"binary"`
	ParseErrorsThreshold uint8  `yaml:"parseErrorsThreshold"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	c := Config{}
	c.applyDefaults()
	return &c
}

// LoadConfig reads a YAML configuration file. Absent keys take their
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	c.applyDefaults()
	if err = c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Level returns the configured log level.
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': %w", s.LogLevel, err)
	}
	return level, nil
}

func (c *Config) applyDefaults() {
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = slog.LevelInfo.String()
	}
	if c.Analysis.Workers <= 0 {
		c.Analysis.Workers = defaultWorkers
	}
	if c.Splitter.MinSessionBytes <= 0 {
		c.Splitter.MinSessionBytes = session.DefaultMinSessionBytes
	}
	if c.Splitter.ScratchName == "" {
		c.Splitter.ScratchName = session.DefaultScratchName
	}
	if c.Decoder.Binary == "" {
		c.Decoder.Binary = bbl.DefaultBinary
	}
	if c.Decoder.ParseErrorsThreshold == 0 {
		c.Decoder.ParseErrorsThreshold = bbl.ParseErrorsThreshold
	}
	if c.Storage.DataDirectory == "" {
		c.Storage.DataDirectory = storageDir
	}
}

func (c *Config) validate() error {
	if _, err := c.Settings.Level(); err != nil {
		return err
	}
	if c.Analysis.Options.ResponseMin >= c.Analysis.Options.ResponseMax &&
		(c.Analysis.Options.ResponseMin != 0 || c.Analysis.Options.ResponseMax != 0) {
		return fmt.Errorf("invalid response range [%g, %g]", c.Analysis.Options.ResponseMin, c.Analysis.Options.ResponseMax)
	}
	return nil
}
