package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/bbl-analyzer/cmd/analyzer/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var configPath, scratchName string
	var motors bool
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.BoolVar(&motors, "m", false, "Use the highest motor output as throttle")
	flag.StringVar(&scratchName, "n", "", "Name of the scratch directory created next to each log")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] log [log ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	config := app.DefaultConfig()
	if configPath != "" {
		var err error
		if config, err = app.LoadConfig(configPath); err != nil {
			logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
			os.Exit(1)
		}
	}
	if motors {
		config.Analysis.UseMotorsAsThrottle = true
	}
	if scratchName != "" {
		config.Splitter.ScratchName = scratchName
	}

	level, _ := config.Settings.Level()
	logLevel.Set(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, config, flag.Args(), logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
