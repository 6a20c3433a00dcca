package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/id"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one execution of a pipeline stage.
type Run struct {
	ID         string
	Stage      string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Groups     int
	Records    int
	Failed     int
	Error      string
}

// RunStats are the totals recorded when a run finishes.
type RunStats struct {
	Groups  int
	Records int
	Failed  int
	Err     error
}

// StartRun records the start of a stage and returns its run ID.
func (s *Store) StartRun(ctx context.Context, stage string) (string, error) {
	runID, err := id.Generate("run")
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, stage, status, started_at)
		VALUES (?, ?, ?, ?)`,
		runID, stage, RunRunning, formatTime(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	return runID, nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, stats RunStats) error {
	status := RunSucceeded
	var errText string
	if stats.Err != nil {
		status = RunFailed
		errText = stats.Err.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, finished_at = ?, groups_count = ?, records_count = ?, failed_count = ?, error = ?
		WHERE id = ?`,
		status, formatTime(s.now()), stats.Groups, stats.Records, stats.Failed, nullString(errText), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Internalf("run %s not found", runID)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		r          Run
		startedAt  string
		finishedAt sql.NullString
		errText    sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, stage, status, started_at, finished_at, groups_count, records_count, failed_count, error
		FROM runs WHERE id = ?`, runID,
	).Scan(&r.ID, &r.Stage, &r.Status, &startedAt, &finishedAt, &r.Groups, &r.Records, &r.Failed, &errText)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = parseNullableTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	r.Error = errText.String

	return &r, nil
}
