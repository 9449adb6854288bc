package app

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/bbl-analyzer/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	return renderSession(ctx, store, config, logger)
}

func renderSession(ctx context.Context, store storage.Store, config *Config, logger *slog.Logger) error {
	iter, err := store.ReadAxisResults(ctx, config.SessionID, storage.WithAxes(config.Axes...))
	if err != nil {
		return err
	}
	defer iter.Close()

	sess := iter.Session()
	logger.Info("rendering session",
		slog.Int64("id", sess.ID),
		slog.Int("index", sess.Index),
		slog.String("size", humanize.Bytes(uint64(sess.Size))),
		slog.Bool("debugModeValid", sess.DebugModeValid))

	renderer, err := NewNoiseMapRenderer(RenderConfig{ColorTheme: config.Theme})
	if err != nil {
		return fmt.Errorf("creating noise map renderer: %w", err)
	}

	rendered := 0
	for iter.Next(ctx) {
		res := iter.Current()
		if res.Result == nil {
			continue
		}

		grid := NewNoiseGrid(res.Result, config.Source)
		grid.SessionID = sess.ID
		grid.DebugModeValid = sess.DebugModeValid

		img, err := renderer.Render(grid)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", res.Axis, err)
		}

		path := config.OutputPath(res.Axis)
		if err = writeImage(path, config.Format, img); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		logger.Info("noise map written",
			slog.Group("image",
				slog.String("destination", path),
				slog.String("axis", res.Axis),
				slog.String("source", string(config.Source)),
				slog.String("theme", string(config.Theme)),
				slog.Bool("signal", grid.HasSignal),
				slog.Int("width", img.Bounds().Dx()),
				slog.Int("height", img.Bounds().Dy()),
			))
		rendered++
	}
	if err = iter.Error(); err != nil {
		return err
	}

	if rendered == 0 {
		return fmt.Errorf("session %d has no results for axes %v", config.SessionID, config.Axes)
	}
	return nil
}

func writeImage(path string, format ImageFormat, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	switch format {
	case ImageJPEG:
		return jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})

	default:
		return png.Encode(out, img)
	}
}
