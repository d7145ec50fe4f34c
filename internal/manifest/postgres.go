package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, mode, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"complete_run": `UPDATE runs SET status = $1, stats = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_run":      `SELECT id, mode, params, status, stats, error, created_at, updated_at FROM runs WHERE id = $1`,
	"insert_file":  `INSERT INTO run_files (id, run_id, input, output, stats, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"list_files":   `SELECT id, run_id, input, output, stats, error, created_at FROM run_files WHERE run_id = $1 ORDER BY created_at, input`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	mode       TEXT NOT NULL,
	params     JSONB,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_files (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	input      TEXT NOT NULL,
	output     TEXT,
	stats      JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
CREATE INDEX IF NOT EXISTS idx_run_files_run_id ON run_files(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, mode string, params any) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := marshalJSON(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, mode, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, mode, []byte(paramsJSON), string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, stats any) error {
	statsJSON, err := marshalJSON(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stats = $2, updated_at = $3 WHERE id = $4`,
		string(RunStatusComplete), []byte(statsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var params, stats []byte
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, mode, params, status, stats, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Mode, &params, &r.Status, &stats, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	r.Params = json.RawMessage(params)
	r.Stats = json.RawMessage(stats)
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, mode, params, status, stats, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode = $%d`, argIdx)
		args = append(args, filter.Mode)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var params, stats []byte
		var errMsg *string

		if err := rows.Scan(&r.ID, &r.Mode, &params, &r.Status, &stats, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Params = json.RawMessage(params)
		r.Stats = json.RawMessage(stats)
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) RecordFile(ctx context.Context, runID string, report FileReport) (*FileResult, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	statsJSON, err := marshalJSON(report.Stats)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal file stats")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_files (id, run_id, input, output, stats, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, runID, report.Input, report.Output, []byte(statsJSON), report.Error, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert file for run %s", runID)
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

func (s *PostgresStore) ListFiles(ctx context.Context, runID string) ([]FileResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, input, output, stats, error, created_at FROM run_files
		 WHERE run_id = $1 ORDER BY created_at, input`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list files for run %s", runID)
	}
	defer rows.Close()

	var files []FileResult
	for rows.Next() {
		var f FileResult
		var output, errMsg *string
		var stats []byte

		if err := rows.Scan(&f.ID, &f.RunID, &f.Input, &output, &stats, &errMsg, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan file")
		}
		if output != nil {
			f.Output = *output
		}
		f.Stats = json.RawMessage(stats)
		if errMsg != nil {
			f.Error = *errMsg
		}
		files = append(files, f)
	}
	return files, eris.Wrap(rows.Err(), "postgres: list files iterate")
}
