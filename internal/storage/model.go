package storage

import (
	"time"

	"github.com/roman-kulish/bbl-analyzer/internal/analysis"
	"github.com/roman-kulish/bbl-analyzer/internal/diag"
	"github.com/roman-kulish/bbl-analyzer/internal/header"
)

// Log is a processed log file.
type Log struct {
	ID        int64
	CreatedAt time.Time
	Path      string
	Size      int64

	// Warnings not tied to a stored session: discarded candidates and
	// sessions skipped because they could not be decoded.
	Warnings []diag.Warning
}

// Session is an analyzed session of a log.
type Session struct {
	ID             int64
	LogID          int64
	Index          int
	Path           string
	Offset         int64
	End            int64
	Size           int64
	DebugModeValid bool
	Header         header.Record
	Warnings       []diag.Warning
}

// AxisResult is the analysis of one axis of a session.
type AxisResult struct {
	ID         int64
	SessionID  int64
	Axis       string
	P          float64
	TPAPercent float64
	Result     *analysis.Result
}
