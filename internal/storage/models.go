package storage

import (
	"database/sql"
	"time"
)

type logData struct {
	ID        int64
	CreatedAt time.Time
	Path      string
	Size      int64
	Warnings  sql.NullString
}

type sessionData struct {
	ID             int64
	LogID          int64
	Index          int
	Path           string
	Offset         int64
	End            int64
	Size           int64
	DebugModeValid bool
	Header         string
	Warnings       sql.NullString
}

type axisResultData struct {
	ID         int64
	SessionID  int64
	Axis       string
	P          float64
	TPAPercent float64
	Result     string
}

// warningData is the stored form of a warning; the error is kept as text.
type warningData struct {
	Kind    string `json:"kind"`
	Session int    `json:"session"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
