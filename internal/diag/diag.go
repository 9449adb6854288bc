// Package diag carries the non-fatal conditions raised while a log is
// processed. Components never log directly: they report a Warning to the
// Reporter they were given, and the caller decides where it ends up.
package diag

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Kind classifies a warning.
type Kind string

const (
	SessionTooSmall    Kind = "session_too_small"
	DecodeFailure      Kind = "decode_failure"
	MissingChannel     Kind = "missing_channel"
	DegenerateAnalysis Kind = "degenerate_analysis"
	HeaderValue        Kind = "header_value"
)

// NoSession marks a warning that is not bound to a session.
const NoSession = -1

// Warning is a recoverable condition. Session is the ordinal session index
// or NoSession. Subject names what the warning is about: a channel, a
// header key, an analysis step or a scratch file.
type Warning struct {
	Kind    Kind   `json:"kind"`
	Session int    `json:"session"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (w Warning) String() string {
	if w.Subject != "" {
		return fmt.Sprintf("%s: %s: %s", w.Kind, w.Subject, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Reporter receives warnings. Implementations must be safe for concurrent use.
type Reporter interface {
	Warn(w Warning)
}

// Nop discards every warning.
var Nop Reporter = nopReporter{}

type nopReporter struct{}

func (nopReporter) Warn(Warning) {}

// LogReporter writes warnings to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Warn(w Warning) {
	attrs := []any{slog.String("kind", string(w.Kind))}
	if w.Session != NoSession {
		attrs = append(attrs, slog.Int("session", w.Session))
	}
	if w.Subject != "" {
		attrs = append(attrs, slog.String("subject", w.Subject))
	}
	if w.Err != nil {
		attrs = append(attrs, slog.String("error", w.Err.Error()))
	}
	r.logger.Warn(w.Message, attrs...)
}

// Collector keeps every warning it receives, in arrival order.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
}

func (c *Collector) Warn(w Warning) {
	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()
}

// Warnings returns a copy of the collected warnings.
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Count returns the number of collected warnings of the given kind.
func (c *Collector) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for _, w := range c.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Multi fans a warning out to several reporters.
func Multi(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

type multiReporter []Reporter

func (m multiReporter) Warn(w Warning) {
	for _, r := range m {
		r.Warn(w)
	}
}

// Bind returns a reporter that stamps the session index on every warning.
func Bind(r Reporter, session int) Reporter {
	return sessionReporter{next: r, session: session}
}

type sessionReporter struct {
	next    Reporter
	session int
}

func (s sessionReporter) Warn(w Warning) {
	w.Session = s.session
	s.next.Warn(w)
}
