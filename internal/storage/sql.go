package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS logs
(
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    path       TEXT      NOT NULL,
    size       INTEGER   NOT NULL,
    warnings   TEXT
);

CREATE TABLE IF NOT EXISTS sessions
(
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    log_id           INTEGER NOT NULL REFERENCES logs (id),
    session_index    INTEGER NOT NULL,
    path             TEXT    NOT NULL,
    offset_bytes     INTEGER NOT NULL,
    end_bytes        INTEGER NOT NULL,
    size             INTEGER NOT NULL,
    debug_mode_valid BOOLEAN NOT NULL,
    header           TEXT    NOT NULL,
    warnings         TEXT
);

CREATE TABLE IF NOT EXISTS axis_results
(
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER NOT NULL REFERENCES sessions (id),
    axis        TEXT    NOT NULL,
    p           REAL    NOT NULL,
    tpa_percent REAL    NOT NULL,
    result      TEXT    NOT NULL
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_sessions_log_id ON sessions (log_id, session_index);
CREATE INDEX IF NOT EXISTS idx_axis_results_session_id ON axis_results (session_id, axis);`

	insertLogSQL = `
INSERT INTO logs (created_at,
                  path,
                  size,
                  warnings)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectLogSQL = `
SELECT
    id,
    created_at,
    path,
    size,
    warnings
FROM logs
WHERE
    id = ?`

	selectLogsSQL = `
SELECT
    id,
    created_at,
    path,
    size,
    warnings
FROM logs
ORDER BY id`

	insertSessionSQL = `
INSERT INTO sessions (log_id,
                      session_index,
                      path,
                      offset_bytes,
                      end_bytes,
                      size,
                      debug_mode_valid,
                      header,
                      warnings)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    log_id,
    session_index,
    path,
    offset_bytes,
    end_bytes,
    size,
    debug_mode_valid,
    header,
    warnings
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    log_id,
    session_index,
    path,
    offset_bytes,
    end_bytes,
    size,
    debug_mode_valid,
    header,
    warnings
FROM sessions
WHERE
    log_id = ?
ORDER BY session_index`

	insertAxisResultSQL = `
INSERT INTO axis_results (session_id,
                          axis,
                          p,
                          tpa_percent,
                          result)
VALUES (?, ?, ?, ?, ?)`

	selectAxisResultSQL = `
SELECT
    id,
    session_id,
    axis,
    p,
    tpa_percent,
    result
FROM axis_results
WHERE
    session_id = ?
    AND axis = ?`

	selectAxisResultsSQL = `
SELECT
    id,
    session_id,
    axis,
    p,
    tpa_percent,
    result
FROM axis_results
WHERE
    session_id = ?
ORDER BY id`
)
