package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/roman-kulish/bbl-analyzer/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	return plotSession(ctx, store, config, logger)
}

func plotSession(ctx context.Context, store storage.Store, config *Config, logger *slog.Logger) error {
	iter, err := store.ReadAxisResults(ctx, config.SessionID)
	if err != nil {
		return err
	}
	defer iter.Close()

	var results []*storage.AxisResult
	for iter.Next(ctx) {
		if res := iter.Current(); res.Result != nil {
			results = append(results, res)
		}
	}
	if err = iter.Error(); err != nil {
		return err
	}

	sess := iter.Session()
	plots := []struct {
		name  string
		build func(*storage.Session, []*storage.AxisResult) (*plot.Plot, error)
	}{
		{name: "response", build: NewResponsePlot},
		{name: "throttle", build: NewThrottlePlot},
	}

	for _, pl := range plots {
		p, err := pl.build(sess, results)
		if err != nil {
			return fmt.Errorf("building %s plot of session %d: %w", pl.name, config.SessionID, err)
		}

		path := config.OutputPath(pl.name)
		if err = p.Save(vg.Length(config.Width)*vg.Inch, vg.Length(config.Height)*vg.Inch, path); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}

		logger.Info("plot written",
			slog.String("destination", path),
			slog.Int64("session", sess.ID),
			slog.Int("axes", len(results)))
	}
	return nil
}
