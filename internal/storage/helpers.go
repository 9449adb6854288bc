package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roman-kulish/bbl-analyzer/internal/diag"
	"github.com/roman-kulish/bbl-analyzer/internal/header"
	"github.com/roman-kulish/bbl-analyzer/internal/pipeline"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toWarningsData(warnings []diag.Warning) (sql.NullString, error) {
	if len(warnings) == 0 {
		return sql.NullString{}, nil
	}

	data := make([]warningData, len(warnings))
	for i, w := range warnings {
		data[i] = warningData{
			Kind:    string(w.Kind),
			Session: w.Session,
			Subject: w.Subject,
			Message: w.Message,
		}
		if w.Err != nil {
			data[i].Error = w.Err.Error()
		}
	}

	p, err := json.Marshal(data)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling warnings: %w", err)
	}
	return sql.NullString{String: string(p), Valid: true}, nil
}

func fromWarningsData(s sql.NullString) ([]diag.Warning, error) {
	if !s.Valid {
		return nil, nil
	}

	var data []warningData
	if err := json.Unmarshal([]byte(s.String), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling warnings: %w", err)
	}

	warnings := make([]diag.Warning, len(data))
	for i, d := range data {
		warnings[i] = diag.Warning{
			Kind:    diag.Kind(d.Kind),
			Session: d.Session,
			Subject: d.Subject,
			Message: d.Message,
		}
		if d.Error != "" {
			warnings[i].Err = errors.New(d.Error)
		}
	}
	return warnings, nil
}

func toSessionData(logID int64, sr *pipeline.SessionResult) (*sessionData, error) {
	head, err := json.Marshal(sr.Header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	warnings, err := toWarningsData(sr.Warnings)
	if err != nil {
		return nil, err
	}

	return &sessionData{
		LogID:          logID,
		Index:          sr.Index,
		Path:           sr.Path,
		Offset:         sr.Session.Offset,
		End:            sr.Session.End,
		Size:           sr.Session.Size,
		DebugModeValid: sr.DebugModeValid,
		Header:         string(head),
		Warnings:       warnings,
	}, nil
}

func fromSessionData(d *sessionData) (*Session, error) {
	sess := Session{
		ID:             d.ID,
		LogID:          d.LogID,
		Index:          d.Index,
		Path:           d.Path,
		Offset:         d.Offset,
		End:            d.End,
		Size:           d.Size,
		DebugModeValid: d.DebugModeValid,
	}

	if err := json.Unmarshal([]byte(d.Header), &sess.Header); err != nil {
		return nil, fmt.Errorf("unmarshaling header: %w", err)
	}
	if sess.Header == nil {
		sess.Header = header.Record{}
	}

	var err error
	if sess.Warnings, err = fromWarningsData(d.Warnings); err != nil {
		return nil, err
	}
	return &sess, nil
}

func fromLogData(d *logData) (*Log, error) {
	warnings, err := fromWarningsData(d.Warnings)
	if err != nil {
		return nil, err
	}
	return &Log{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		Path:      d.Path,
		Size:      d.Size,
		Warnings:  warnings,
	}, nil
}

func fromAxisResultData(d *axisResultData) (*AxisResult, error) {
	res := AxisResult{
		ID:         d.ID,
		SessionID:  d.SessionID,
		Axis:       d.Axis,
		P:          d.P,
		TPAPercent: d.TPAPercent,
	}
	if err := json.Unmarshal([]byte(d.Result), &res.Result); err != nil {
		return nil, fmt.Errorf("unmarshaling axis result: %w", err)
	}
	return &res, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLog(s scanner) (*Log, error) {
	var d logData
	if err := s.Scan(&d.ID, &d.CreatedAt, &d.Path, &d.Size, &d.Warnings); err != nil {
		return nil, err
	}
	return fromLogData(&d)
}

func scanSession(s scanner) (*Session, error) {
	var d sessionData
	if err := s.Scan(&d.ID, &d.LogID, &d.Index, &d.Path, &d.Offset, &d.End, &d.Size, &d.DebugModeValid, &d.Header, &d.Warnings); err != nil {
		return nil, err
	}
	return fromSessionData(&d)
}

func scanAxisResult(s scanner) (*AxisResult, error) {
	var d axisResultData
	if err := s.Scan(&d.ID, &d.SessionID, &d.Axis, &d.P, &d.TPAPercent, &d.Result); err != nil {
		return nil, err
	}
	return fromAxisResultData(&d)
}
