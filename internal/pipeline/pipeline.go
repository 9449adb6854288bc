// Package pipeline runs the analysis of whole log files: every log is split
// into sessions, every session is decoded, normalized and analyzed on its
// own, and the results are merged back in session order.
//
// A failing session never affects its siblings and a malformed log never
// affects other logs of a batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/bbl-analyzer/internal/analysis"
	"github.com/roman-kulish/bbl-analyzer/internal/bbl"
	"github.com/roman-kulish/bbl-analyzer/internal/channel"
	"github.com/roman-kulish/bbl-analyzer/internal/diag"
	"github.com/roman-kulish/bbl-analyzer/internal/header"
	"github.com/roman-kulish/bbl-analyzer/internal/session"
	"github.com/roman-kulish/bbl-analyzer/internal/trace"
)

const defaultWorkers = 4

// SessionResult is the analysis of one retained session.
type SessionResult struct {
	Index          int
	Path           string
	Session        session.Session
	Header         header.Record
	DebugModeValid bool
	Axes           [channel.Axes]*analysis.Result
	Warnings       []diag.Warning
}

// LogResult is the outcome of one log file. Err is set when the log could
// not be split at all; Warnings holds the warnings not tied to a retained
// session.
type LogResult struct {
	Path     string
	Size     int
	Sessions []SessionResult
	Warnings []diag.Warning
	Err      error
}

// WithWorkers sets the number of sessions analyzed concurrently.
func WithWorkers(n int) func(p *Pipeline) {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMotorsAsThrottle makes the highest motor output act as throttle.
func WithMotorsAsThrottle(enabled bool) func(p *Pipeline) {
	return func(p *Pipeline) {
		p.motorsAsThrottle = enabled
	}
}

// WithSplitter sets the session splitter options.
func WithSplitter(minBytes int64, scratchName string) func(p *Pipeline) {
	return func(p *Pipeline) {
		p.minBytes = minBytes
		p.scratchName = scratchName
	}
}

// WithKeepScratch keeps the staged session files after processing.
func WithKeepScratch(keep bool) func(p *Pipeline) {
	return func(p *Pipeline) {
		p.keepScratch = keep
	}
}

// WithAnalysisOptions sets the numerical parameters of the axis analysis.
func WithAnalysisOptions(o analysis.Options) func(p *Pipeline) {
	return func(p *Pipeline) {
		p.analysis = o
	}
}

// WithReporter sets a reporter receiving every warning in addition to the
// per result collection.
func WithReporter(r diag.Reporter) func(p *Pipeline) {
	return func(p *Pipeline) {
		p.reporter = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) func(p *Pipeline) {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline processes log files with a single decoder.
type Pipeline struct {
	decoder bbl.Decoder

	workers          int
	motorsAsThrottle bool
	minBytes         int64
	scratchName      string
	keepScratch      bool
	analysis         analysis.Options

	reporter diag.Reporter
	logger   *slog.Logger
}

// New returns a Pipeline decoding logs with decoder.
func New(decoder bbl.Decoder, options ...func(p *Pipeline)) *Pipeline {
	p := Pipeline{
		decoder:     decoder,
		workers:     defaultWorkers,
		minBytes:    session.DefaultMinSessionBytes,
		scratchName: session.DefaultScratchName,
		analysis:    analysis.DefaultOptions(),
		reporter:    diag.Nop,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// ProcessAll processes the logs one after another. Every log gets its own
// result; a log that fails leaves the others untouched. Only a cancelled
// context stops the batch early.
func (p *Pipeline) ProcessAll(ctx context.Context, paths []string) []LogResult {
	results := make([]LogResult, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			results = append(results, LogResult{Path: path, Err: ctx.Err()})
			continue
		}

		res, err := p.Process(ctx, path)
		if err != nil {
			p.logger.Error("processing log failed", slog.String("log", path), slog.Any("error", err))
			if res == nil {
				res = &LogResult{Path: path}
			}
			res.Err = err
		}
		results = append(results, *res)
	}
	return results
}

// Process analyzes every session of one log file.
func (p *Pipeline) Process(ctx context.Context, path string) (*LogResult, error) {
	raw, err := session.ReadRawLog(path)
	if err != nil {
		return nil, err
	}

	logger := p.logger.With(slog.String("log", path))
	logger.Info("processing log", slog.String("size", humanize.Bytes(uint64(len(raw.Data)))))

	res := &LogResult{Path: path, Size: len(raw.Data)}
	var logWarnings diag.Collector

	splitter := session.NewSplitter(
		session.WithMinSessionBytes(p.minBytes),
		session.WithScratchName(p.scratchName),
		session.WithReporter(diag.Multi(&logWarnings, p.reporter)),
		session.WithLogger(logger),
	)

	sessions, err := splitter.Split(ctx, raw)
	defer func() {
		if p.keepScratch {
			return
		}
		if err := splitter.Cleanup(sessions); err != nil {
			logger.Warn("removing scratch files", slog.Any("error", err))
		}
	}()
	res.Warnings = logWarnings.Warnings()
	if err != nil {
		return res, fmt.Errorf("splitting log: %w", err)
	}

	logger.Info("log split", slog.Int("sessions", len(sessions)), slog.Int("ignored", len(res.Warnings)))

	results := make([]*SessionResult, len(sessions))
	skipped := make([][]diag.Warning, len(sessions))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, s := range sessions {
		g.Go(func() error {
			var warnings diag.Collector
			rep := diag.Bind(diag.Multi(&warnings, p.reporter), s.Index)

			sr, err := p.processSession(ctx, s, rep, logger.With(slog.Int("session", s.Index)))
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("session failed", slog.Int("session", s.Index), slog.Any("error", err))
			}
			if sr == nil {
				skipped[i] = warnings.Warnings()
				return nil
			}

			sr.Warnings = warnings.Warnings()
			results[i] = sr
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return res, err
	}

	for i, sr := range results {
		if sr != nil {
			res.Sessions = append(res.Sessions, *sr)
			continue
		}
		res.Warnings = append(res.Warnings, skipped[i]...)
	}

	logger.Info("log processed", slog.Int("analyzed", len(res.Sessions)))

	return res, nil
}

// processSession returns nil without an error when the session has to be
// skipped.
func (p *Pipeline) processSession(ctx context.Context, s session.Session, rep diag.Reporter, logger *slog.Logger) (*SessionResult, error) {
	log, err := p.decoder.Decode(ctx, s.Path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rep.Warn(diag.Warning{
			Kind:    diag.DecodeFailure,
			Subject: s.Path,
			Message: "skipping session, frames could not be decoded",
			Err:     err,
		})
		return nil, nil
	}

	table := bbl.NewTable(log)
	logger.Debug("session decoded", slog.Int("frames", table.Len()), slog.Int("fields", len(table.Fields())))

	set := channel.Extract(table, p.motorsAsThrottle, rep)
	head := header.Normalize(log.Headers).WithSession(s.Path, s.Index)
	traces := trace.Build(set, head, rep)

	sr := SessionResult{
		Index:          s.Index,
		Path:           s.Path,
		Session:        s,
		Header:         head,
		DebugModeValid: set.DebugModeValid,
	}

	if err = p.analyzeAxes(ctx, traces, &sr, rep, logger); err != nil {
		return nil, err
	}

	return &sr, nil
}

func (p *Pipeline) analyzeAxes(ctx context.Context, traces [channel.Axes]trace.Axis, sr *SessionResult, rep diag.Reporter, logger *slog.Logger) error {
	var wg sync.WaitGroup
	var errs [channel.Axes]error

	for i := range traces {
		wg.Add(1)
		go func() {
			defer wg.Done()

			a := analysis.NewAnalyzer(
				analysis.WithOptions(p.analysis),
				analysis.WithReporter(rep),
				analysis.WithLogger(logger),
			)
			sr.Axes[i], errs[i] = a.Analyze(ctx, traces[i])
		}()
	}
	wg.Wait()

	return errors.Join(errs[:]...)
}
