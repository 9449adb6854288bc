package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
)

// AxisResultReader provides an iterator-based interface for reading the
// axis results of one session.
type AxisResultReader interface {
	// Session returns the session this reader is accessing.
	Session() *Session

	// Next advances the iterator and returns true if there is another
	// result to read, false when the iteration is complete or if an error
	// occurred.
	Next(context.Context) bool

	// Current returns the current result. If called after Next() returns
	// false, the behavior is undefined.
	Current() *AxisResult

	// Error returns any error that occurred during iteration.
	Error() error

	// Close releases any resources associated with the reader.
	Close() error
}

// ReaderOption configures an axis result reader.
type ReaderOption func(*SqliteAxisResultReader)

// WithAxes restricts the reader to the named axes. Results of other axes
// are skipped.
func WithAxes(axes ...string) ReaderOption {
	return func(r *SqliteAxisResultReader) {
		r.axes = append(r.axes, axes...)
	}
}

// SqliteAxisResultReader implements AxisResultReader for the SQLite backend.
type SqliteAxisResultReader struct {
	db *sql.DB

	sessionID int64
	session   *Session
	axes      []string

	current *AxisResult
	rows    *sql.Rows
	err     error
}

func newSqliteAxisResultReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteAxisResultReader, error) {
	r := &SqliteAxisResultReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return r, nil
}

func (r *SqliteAxisResultReader) init(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection required")
	}
	if r.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: r.loadSession},
		{msg: "initializing query", fn: r.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (r *SqliteAxisResultReader) loadSession(ctx context.Context) (err error) {
	stmt, err := r.db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if r.session, err = scanSession(stmt.QueryRowContext(ctx, r.sessionID)); err != nil {
		return notFound(fmt.Errorf("querying session: %w", err))
	}
	return
}

func (r *SqliteAxisResultReader) initQuery(ctx context.Context) (err error) {
	if r.rows, err = r.db.QueryContext(ctx, selectAxisResultsSQL, r.sessionID); err != nil {
		return fmt.Errorf("querying axis results: %w", err)
	}
	return nil
}

func (r *SqliteAxisResultReader) Session() *Session {
	return r.session
}

func (r *SqliteAxisResultReader) Next(ctx context.Context) bool {
	if r.err != nil || r.rows == nil {
		return false
	}

	for {
		select {
		case <-ctx.Done():
			r.err = ctx.Err()
			return false
		default:
		}

		if !r.rows.Next() {
			r.err = r.rows.Err()
			r.current = nil
			return false
		}

		res, err := scanAxisResult(r.rows)
		if err != nil {
			r.err = fmt.Errorf("scanning axis result: %w", err)
			return false
		}

		if len(r.axes) > 0 && !slices.Contains(r.axes, res.Axis) {
			continue
		}

		r.current = res
		return true
	}
}

func (r *SqliteAxisResultReader) Current() *AxisResult {
	return r.current
}

func (r *SqliteAxisResultReader) Error() error {
	return r.err
}

func (r *SqliteAxisResultReader) Close() error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	return err
}
