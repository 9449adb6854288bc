package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/bbl-analyzer/internal/bbl"
	"github.com/roman-kulish/bbl-analyzer/internal/diag"
	"github.com/roman-kulish/bbl-analyzer/internal/pipeline"
	"github.com/roman-kulish/bbl-analyzer/internal/storage"
)

const (
	storageDir = "data"
)

// Run analyzes the given log files with the external frame decoder and
// stores the results. Logs that fail are reported and the rest still run;
// the returned error joins the failures.
func Run(ctx context.Context, config *Config, paths []string, logger *slog.Logger) error {
	decoder := bbl.NewExternalDecoder(
		config.Decoder.Binary,
		bbl.WithParseErrorsThreshold(config.Decoder.ParseErrorsThreshold),
		bbl.WithLogger(logger),
	)
	return run(ctx, config, paths, decoder, logger)
}

func run(ctx context.Context, config *Config, paths []string, decoder bbl.Decoder, logger *slog.Logger) error {
	if len(paths) == 0 {
		return errors.New("no log files provided")
	}

	store, dbPath, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	logger.Info("storing results", slog.String("database", dbPath))

	p := pipeline.New(decoder,
		pipeline.WithWorkers(config.Analysis.Workers),
		pipeline.WithMotorsAsThrottle(config.Analysis.UseMotorsAsThrottle),
		pipeline.WithSplitter(config.Splitter.MinSessionBytes, config.Splitter.ScratchName),
		pipeline.WithKeepScratch(config.Splitter.KeepScratch),
		pipeline.WithAnalysisOptions(config.Analysis.Options),
		pipeline.WithReporter(diag.NewLogReporter(logger)),
		pipeline.WithLogger(logger),
	)

	started := time.Now()

	var errs []error
	for _, res := range p.ProcessAll(ctx, paths) {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Path, res.Err))
			continue
		}
		if err = storeLog(ctx, store, &res, logger); err != nil {
			return fmt.Errorf("storing %s: %w", res.Path, err)
		}
	}

	logger.Info("analysis finished",
		slog.Int("logs", len(paths)),
		slog.Int("failed", len(errs)),
		slog.Duration("took", time.Since(started).Round(time.Millisecond)))

	return errors.Join(errs...)
}

func storeLog(ctx context.Context, store storage.Store, res *pipeline.LogResult, logger *slog.Logger) error {
	logID, err := store.CreateLog(ctx, res)
	if err != nil {
		return fmt.Errorf("creating log: %w", err)
	}

	for i := range res.Sessions {
		sr := &res.Sessions[i]
		sessionID, err := store.StoreSession(ctx, logID, sr)
		if err != nil {
			return fmt.Errorf("storing session %d: %w", sr.Index, err)
		}

		logger.Info("session stored",
			slog.String("log", res.Path),
			slog.Int("session", sr.Index),
			slog.Int64("id", sessionID),
			slog.String("size", humanize.Bytes(uint64(sr.Session.Size))),
			slog.Bool("debugModeValid", sr.DebugModeValid),
			slog.Int("warnings", len(sr.Warnings)))
	}

	return nil
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, string, error) {
	dbPath := config.DataDirectory
	if !filepath.IsAbs(dbPath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dbPath = filepath.Join(wd, dbPath)
	}

	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating storage directory '%s': %w", dbPath, err)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("bbl_analysis_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), dbPath, nil
}
