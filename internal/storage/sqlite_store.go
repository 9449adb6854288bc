package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/bbl-analyzer/internal/pipeline"
)

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

var _ Store = (*SqliteStore)(nil)

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// Connections are opened on first use; the schema is created with the
// first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateLog(ctx context.Context, res *pipeline.LogResult) (logID int64, err error) {
	warnings, err := toWarningsData(res.Warnings)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertLogSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, res.Path, res.Size, warnings)
	if err != nil {
		err = fmt.Errorf("inserting log: %w", err)
		return
	}

	logID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting log ID: %w", err)
	}
	return
}

func (s *SqliteStore) StoreSession(ctx context.Context, logID int64, sr *pipeline.SessionResult) (sessionID int64, err error) {
	data, err := toSessionData(logID, sr)
	if err != nil {
		return
	}

	results := make([]string, 0, len(sr.Axes))
	for _, a := range sr.Axes {
		if a == nil {
			continue
		}
		var p []byte
		if p, err = json.Marshal(a); err != nil {
			err = fmt.Errorf("marshaling %s result: %w", a.Axis, err)
			return
		}
		results = append(results, string(p))
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("beginning transaction: %w", err)
		return
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(
		ctx,
		insertSessionSQL,
		data.LogID,
		data.Index,
		data.Path,
		data.Offset,
		data.End,
		data.Size,
		data.DebugModeValid,
		data.Header,
		data.Warnings,
	)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	if sessionID, err = result.LastInsertId(); err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
		return
	}

	stmt, err := tx.PrepareContext(ctx, insertAxisResultSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var i int
	for _, a := range sr.Axes {
		if a == nil {
			continue
		}
		if _, err = stmt.ExecContext(ctx, sessionID, a.Axis, a.P, a.TPAPercent, results[i]); err != nil {
			err = fmt.Errorf("inserting %s result: %w", a.Axis, err)
			return
		}
		i++
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("committing transaction: %w", err)
	}
	return
}

func (s *SqliteStore) Log(ctx context.Context, id int64) (log *Log, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectLogSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if log, err = scanLog(stmt.QueryRowContext(ctx, id)); err != nil {
		err = notFound(fmt.Errorf("scanning log: %w", err))
	}
	return
}

func (s *SqliteStore) Logs(ctx context.Context) (logs []*Log, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectLogsSQL)
	if err != nil {
		err = fmt.Errorf("querying logs: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var l *Log
		if l, err = scanLog(rows); err != nil {
			err = fmt.Errorf("scanning log: %w", err)
			return
		}
		logs = append(logs, l)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if session, err = scanSession(stmt.QueryRowContext(ctx, id)); err != nil {
		err = notFound(fmt.Errorf("scanning session: %w", err))
	}
	return
}

func (s *SqliteStore) Sessions(ctx context.Context, logID int64) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL, logID)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess *Session
		if sess, err = scanSession(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) AxisResult(ctx context.Context, sessionID int64, axis string) (result *AxisResult, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectAxisResultSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if result, err = scanAxisResult(stmt.QueryRowContext(ctx, sessionID, axis)); err != nil {
		err = notFound(fmt.Errorf("scanning axis result: %w", err))
	}
	return
}

// ReadAxisResults creates a reader over the stored axis results of a
// session, in the order they were stored. Use WithAxes to restrict it to
// some axes.
func (s *SqliteStore) ReadAxisResults(ctx context.Context, sessionID int64, opts ...ReaderOption) (AxisResultReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteAxisResultReader(ctx, db, sessionID, opts...)
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
