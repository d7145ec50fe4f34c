package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	params     TEXT,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_files (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	input      TEXT NOT NULL,
	output     TEXT,
	stats      TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
CREATE INDEX IF NOT EXISTS idx_run_files_run_id ON run_files(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, mode string, params any) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := marshalJSON(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, mode, nullableText(paramsJSON), string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:        id,
		Mode:      mode,
		Params:    paramsJSON,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, stats any) error {
	statsJSON, err := marshalJSON(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusComplete), nullableText(statsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, params, status, stats, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, mode, params, status, stats, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, filter.Mode)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) RecordFile(ctx context.Context, runID string, report FileReport) (*FileResult, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	statsJSON, err := marshalJSON(report.Stats)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal file stats")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_files (id, run_id, input, output, stats, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, runID, report.Input, report.Output, nullableText(statsJSON), report.Error, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert file for run %s", runID)
	}

	return &FileResult{
		ID:        id,
		RunID:     runID,
		Input:     report.Input,
		Output:    report.Output,
		Stats:     statsJSON,
		Error:     report.Error,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context, runID string) ([]FileResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, input, output, stats, error, created_at FROM run_files
		 WHERE run_id = ? ORDER BY created_at, input`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list files for run %s", runID)
	}
	defer rows.Close()

	var files []FileResult
	for rows.Next() {
		var f FileResult
		var output, stats, errMsg sql.NullString
		if err := rows.Scan(&f.ID, &f.RunID, &f.Input, &output, &stats, &errMsg, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan file")
		}
		f.Output = output.String
		if stats.Valid {
			f.Stats = json.RawMessage(stats.String)
		}
		f.Error = errMsg.String
		files = append(files, f)
	}
	return files, eris.Wrap(rows.Err(), "sqlite: list files iterate")
}

// helpers

func marshalJSON(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// nullableText converts a possibly-nil JSON blob into a driver value that
// stores NULL rather than the literal string "null".
func nullableText(b json.RawMessage) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var params, stats, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.Mode, &params, &r.Status, &stats, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if params.Valid {
		r.Params = json.RawMessage(params.String)
	}
	if stats.Valid {
		r.Stats = json.RawMessage(stats.String)
	}
	r.Error = errMsg.String
	return &r, nil
}
