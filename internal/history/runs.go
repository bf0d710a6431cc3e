package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"zipp/internal/services"
)

// Run status values.
const (
	RunRunning     = "running"
	RunOK          = "ok"
	RunFailed      = "failed"
	RunInterrupted = "interrupted"
)

// Run is one ledger row per CLI invocation.
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Root       string    `json:"root"`
	Output     string    `json:"output,omitempty"`
	DryRun     bool      `json:"dry_run"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Totals     Totals    `json:"totals"`
}

// Totals are the final counters of a run.
type Totals struct {
	Committed  int `json:"committed"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Levels     int `json:"levels"`
	RolledBack int `json:"rolled_back"`
}

// JobRecord is the latest known state of one archive job.
type JobRecord struct {
	RunID     string
	Archive   string
	Target    string
	Status    string
	Error     string
	ErrorKind string
	UpdatedAt time.Time
}

// StepRecord is one flatten operation.
type StepRecord struct {
	RunID      string
	Project    string
	Source     string
	Depth      int
	Status     string
	Collisions []string
	Error      string
	CreatedAt  time.Time
}

// StartRun inserts a running row for run.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return s.exec(ctx, `INSERT INTO runs (id, command, root, output, dry_run, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Root, nullableString(run.Output), boolToInt(run.DryRun), RunRunning, formatTime(run.StartedAt))
}

// FinishRun stores the final status and totals for runID.
func (s *Store) FinishRun(ctx context.Context, runID, status string, totals Totals) error {
	return s.exec(ctx, `UPDATE runs SET status = ?, finished_at = ?, committed = ?, failed = ?, skipped = ?,
        levels = ?, rolled_back = ? WHERE id = ?`,
		status, formatTime(time.Now()), totals.Committed, totals.Failed, totals.Skipped,
		totals.Levels, totals.RolledBack, runID)
}

// RecordJob upserts the state of one archive job.
func (s *Store) RecordJob(ctx context.Context, rec JobRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	return s.exec(ctx, `INSERT INTO jobs (run_id, archive, target, status, error, error_kind, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, archive) DO UPDATE SET
            status = excluded.status,
            error = excluded.error,
            error_kind = excluded.error_kind,
            updated_at = excluded.updated_at`,
		rec.RunID, rec.Archive, rec.Target, rec.Status, nullableString(rec.Error), nullableString(rec.ErrorKind), formatTime(rec.UpdatedAt))
}

// RecordFlattenStep appends one flatten operation.
func (s *Store) RecordFlattenStep(ctx context.Context, rec StepRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.exec(ctx, `INSERT INTO flatten_steps (run_id, project, source, depth, status, collisions, error, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Project, rec.Source, rec.Depth, rec.Status,
		nullableString(strings.Join(rec.Collisions, "\n")), nullableString(rec.Error), formatTime(rec.CreatedAt))
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT id, command, root, output, dry_run, status, started_at,
        finished_at, committed, failed, skipped, levels, rolled_back
        FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run              Run
			output, finished sql.NullString
			started          string
			dryRun           int
		)
		if err := rows.Scan(&run.ID, &run.Command, &run.Root, &output, &dryRun, &run.Status, &started,
			&finished, &run.Totals.Committed, &run.Totals.Failed, &run.Totals.Skipped,
			&run.Totals.Levels, &run.Totals.RolledBack); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Output = output.String
		run.DryRun = dryRun != 0
		if run.StartedAt, err = parseTimeString(started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = parseTimeString(finished.String); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunJobs returns the jobs recorded for runID ordered by archive.
func (s *Store) RunJobs(ctx context.Context, runID string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT run_id, archive, target, status, error, error_kind, updated_at
        FROM jobs WHERE run_id = ? ORDER BY archive`, runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var (
			rec           JobRecord
			errText, kind sql.NullString
			updated       string
		)
		if err := rows.Scan(&rec.RunID, &rec.Archive, &rec.Target, &rec.Status, &errText, &kind, &updated); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		rec.Error = errText.String
		rec.ErrorKind = kind.String
		if rec.UpdatedAt, err = parseTimeString(updated); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RunSteps returns the flatten operations recorded for runID in order.
func (s *Store) RunSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT run_id, project, source, depth, status, collisions, error, created_at
        FROM flatten_steps WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query flatten steps: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var (
			rec                 StepRecord
			collisions, errText sql.NullString
			created             string
		)
		if err := rows.Scan(&rec.RunID, &rec.Project, &rec.Source, &rec.Depth, &rec.Status, &collisions, &errText, &created); err != nil {
			return nil, fmt.Errorf("scan flatten step: %w", err)
		}
		if collisions.String != "" {
			rec.Collisions = strings.Split(collisions.String, "\n")
		}
		rec.Error = errText.String
		if rec.CreatedAt, err = parseTimeString(created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ResolveRunID expands a run id prefix to the single full id it matches.
func (s *Store) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", errors.New("run id required")
	}
	pattern := strings.NewReplacer("%", "", "_", "").Replace(prefix) + "%"
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT id FROM runs WHERE id LIKE ? ORDER BY started_at DESC LIMIT 2`, pattern)
	if err != nil {
		return "", fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: no run matches %q", services.ErrNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: run id %q matches more than one run", services.ErrAmbiguous, prefix)
	}
}
