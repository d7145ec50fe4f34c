// Package manifest records dataset construction runs and their per-file
// results so that past outputs can be audited and reproduced.
package manifest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus tracks the lifecycle of a construction run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents one invocation of a construction command over a set of
// input files. Params and Stats are stored as opaque JSON so the manifest
// layer stays independent of the engine's types.
type Run struct {
	ID        string          `json:"id"`
	Mode      string          `json:"mode"`
	Params    json.RawMessage `json:"params,omitempty"`
	Status    RunStatus       `json:"status"`
	Stats     json.RawMessage `json:"stats,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FileReport describes the outcome for a single input file, passed to
// RecordFile. Stats is marshaled to JSON by the store.
type FileReport struct {
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Stats  any    `json:"stats,omitempty"`
	Error  string `json:"error,omitempty"`
}

// FileResult is a stored per-file outcome.
type FileResult struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Input     string          `json:"input"`
	Output    string          `json:"output,omitempty"`
	Stats     json.RawMessage `json:"stats,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Mode   string    `json:"mode,omitempty"`
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for run manifests.
type Store interface {
	// Runs. GetRun returns (nil, nil) when no such run exists.
	CreateRun(ctx context.Context, mode string, params any) (*Run, error)
	CompleteRun(ctx context.Context, runID string, stats any) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Per-file results
	RecordFile(ctx context.Context, runID string, report FileReport) (*FileResult, error)
	ListFiles(ctx context.Context, runID string) ([]FileResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// NopStore discards all writes and returns empty reads. It is used when
// manifest tracking is disabled. CreateRun still mints a run ID so callers
// can correlate log lines.
type NopStore struct{}

func (NopStore) CreateRun(_ context.Context, mode string, _ any) (*Run, error) {
	now := time.Now().UTC()
	return &Run{
		ID:        uuid.New().String(),
		Mode:      mode,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (NopStore) CompleteRun(context.Context, string, any) error { return nil }

func (NopStore) FailRun(context.Context, string, string) error { return nil }

func (NopStore) GetRun(context.Context, string) (*Run, error) { return nil, nil }

func (NopStore) ListRuns(context.Context, RunFilter) ([]Run, error) { return nil, nil }

func (NopStore) RecordFile(_ context.Context, runID string, report FileReport) (*FileResult, error) {
	return &FileResult{
		ID:        uuid.New().String(),
		RunID:     runID,
		Input:     report.Input,
		Output:    report.Output,
		Error:     report.Error,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (NopStore) ListFiles(context.Context, string) ([]FileResult, error) { return nil, nil }

func (NopStore) Migrate(context.Context) error { return nil }

func (NopStore) Close() error { return nil }
