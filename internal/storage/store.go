package storage

import (
	"context"
	"errors"

	"github.com/roman-kulish/bbl-analyzer/internal/pipeline"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store provides an interface for persisting analysis results. A log owns
// its analyzed sessions and a session owns one result per axis. All write
// operations are atomic.
type Store interface {
	// CreateLog records a processed log file and the warnings not tied to
	// any analyzed session.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - res: Outcome of processing the log
	//
	// Returns:
	//   - logID: Unique identifier of the stored log
	//   - error: If storage fails or context is cancelled
	CreateLog(ctx context.Context, res *pipeline.LogResult) (logID int64, err error)

	// StoreSession saves an analyzed session and its axis results in a
	// single transaction.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - logID: ID of the log the session was split from
	//   - sr: Session analysis
	//
	// Returns:
	//   - sessionID: Unique identifier of the stored session
	//   - error: If storage fails or context is cancelled
	StoreSession(ctx context.Context, logID int64, sr *pipeline.SessionResult) (sessionID int64, err error)

	// Log retrieves a log by its ID. It returns ErrNotFound when there is
	// no such log.
	Log(ctx context.Context, id int64) (*Log, error)

	// Logs returns all logs in the order they were stored.
	Logs(ctx context.Context) ([]*Log, error)

	// Session retrieves a session by its ID. It returns ErrNotFound when
	// there is no such session.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns the sessions of a log ordered by session index.
	Sessions(ctx context.Context, logID int64) ([]*Session, error)

	// AxisResult retrieves the result of one axis of a session. It returns
	// ErrNotFound when there is no such result.
	AxisResult(ctx context.Context, sessionID int64, axis string) (*AxisResult, error)

	// ReadAxisResults returns a reader over the axis results of a session.
	// The returned reader must be closed after use.
	ReadAxisResults(ctx context.Context, sessionID int64, opts ...ReaderOption) (AxisResultReader, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
