// Package session splits a raw blackbox log into the independently recorded
// sessions it contains and stages each one as a scratch file the frame
// decoder can read.
//
// Every session starts with the same first line as the log itself, so that
// line is the delimiter. The bytes before the first delimiter occurrence
// form candidate 0; in a well formed log this candidate is empty and is
// always discarded by the size threshold.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/bbl-analyzer/internal/diag"
)

const (
	// DefaultMinSessionBytes is the size a candidate must exceed to be kept.
	DefaultMinSessionBytes = 500_000

	// DefaultScratchName is the name of the scratch directory created next to the log.
	DefaultScratchName = "tmp"
)

// MalformedLogError is returned when a log has no delimiter line.
type MalformedLogError struct {
	Path string
	Size int
}

func (e *MalformedLogError) Error() string {
	return fmt.Sprintf("malformed log %q: no newline in %d bytes of log data", e.Path, e.Size)
}

// RawLog is the unmodified content of a log file.
type RawLog struct {
	Path string
	Data []byte
}

// ReadRawLog reads the whole log file.
func ReadRawLog(path string) (*RawLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	return &RawLog{Path: path, Data: data}, nil
}

// Session is one retained candidate. Offset and End delimit its bytes in
// the RawLog, the delimiter occurrence included. Size is the size of the
// scratch file, which always starts with the delimiter.
type Session struct {
	Index  int    `json:"index"`
	Offset int64  `json:"offset"`
	End    int64  `json:"end"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// WithMinSessionBytes sets the size threshold. Candidates at or below it are discarded.
func WithMinSessionBytes(n int64) func(s *Splitter) {
	return func(s *Splitter) {
		s.minBytes = n
	}
}

// WithScratchName sets the name of the scratch directory.
func WithScratchName(name string) func(s *Splitter) {
	return func(s *Splitter) {
		s.scratchName = name
	}
}

// WithReporter sets the warning reporter.
func WithReporter(r diag.Reporter) func(s *Splitter) {
	return func(s *Splitter) {
		s.reporter = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) func(s *Splitter) {
	return func(s *Splitter) {
		s.logger = logger.With(slog.String("component", "splitter"))
	}
}

// Splitter cuts a raw log into one file per flight session and writes them
// to a scratch directory next to the log.
type Splitter struct {
	minBytes    int64
	scratchName string
	reporter    diag.Reporter
	logger      *slog.Logger
}

// NewSplitter returns a Splitter keeping sessions above
// DefaultMinSessionBytes, unless options say otherwise.
func NewSplitter(options ...func(s *Splitter)) *Splitter {
	s := Splitter{
		minBytes:    DefaultMinSessionBytes,
		scratchName: DefaultScratchName,
		reporter:    diag.Nop,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// ScratchDir returns the directory the sessions of logPath are written to.
func (s *Splitter) ScratchDir(logPath string) string {
	return filepath.Join(filepath.Dir(logPath), s.scratchName)
}

// ScratchPath returns the file name used for candidate i of logPath.
func (s *Splitter) ScratchPath(logPath string, i int) string {
	base := filepath.Base(logPath)
	ext := filepath.Ext(base)
	root := strings.TrimSuffix(base, ext)
	return filepath.Join(s.ScratchDir(logPath), fmt.Sprintf("%s_temp%d%s", root, i, ext))
}

// Split finds the sessions in raw, writes every candidate to scratch storage
// and returns the ones larger than the threshold in order of appearance.
func (s *Splitter) Split(ctx context.Context, raw *RawLog) ([]Session, error) {
	nl := bytes.IndexByte(raw.Data, '\n')
	if nl < 0 {
		return nil, &MalformedLogError{Path: raw.Path, Size: len(raw.Data)}
	}
	delim := raw.Data[:nl+1]

	if err := os.MkdirAll(s.ScratchDir(raw.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}

	var sessions []Session
	for i, c := range candidates(raw.Data, delim) {
		if err := ctx.Err(); err != nil {
			return sessions, err
		}

		path := s.ScratchPath(raw.Path, i)
		size, err := materialize(path, delim, raw.Data[c.body:c.end])
		if err != nil {
			return sessions, fmt.Errorf("writing session %d: %w", i, err)
		}

		if size <= s.minBytes {
			s.reporter.Warn(diag.Warning{
				Kind:    diag.SessionTooSmall,
				Session: i,
				Subject: path,
				Message: fmt.Sprintf("ignoring session, %s <= %s",
					humanize.Bytes(uint64(size)), humanize.Bytes(uint64(s.minBytes))),
			})
			if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return sessions, fmt.Errorf("removing scratch file: %w", err)
			}
			continue
		}

		s.logger.Debug("session staged",
			slog.Int("session", i),
			slog.String("path", path),
			slog.String("size", humanize.Bytes(uint64(size))))

		sessions = append(sessions, Session{
			Index:  i,
			Offset: int64(c.start),
			End:    int64(c.end),
			Path:   path,
			Size:   size,
		})
	}

	return sessions, nil
}

// Cleanup removes the scratch files of the given sessions.
func (s *Splitter) Cleanup(sessions []Session) error {
	var errs []error
	for _, sess := range sessions {
		if err := os.Remove(sess.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// candidate positions in the raw buffer: start is where the delimiter
// occurrence begins (0 for the leading piece), body where the piece after
// it begins and end where the next occurrence begins.
type candidate struct {
	start, body, end int
}

func candidates(data, delim []byte) []candidate {
	var out []candidate

	start, body := 0, 0
	for {
		next := bytes.Index(data[body:], delim)
		if next < 0 {
			out = append(out, candidate{start: start, body: body, end: len(data)})
			return out
		}
		next += body

		out = append(out, candidate{start: start, body: body, end: next})
		start, body = next, next+len(delim)
	}
}

func materialize(path string, delim, body []byte) (size int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	if _, err = f.Write(delim); err != nil {
		return 0, err
	}
	if _, err = f.Write(body); err != nil {
		return 0, err
	}

	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}
