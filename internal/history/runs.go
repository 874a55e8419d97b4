package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunCanceled  = "canceled"
)

// Run is one apply invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Roots      []string
	DryRun     bool
	Status     string
	Renamed    int
	Deleted    int
	Jobs       int
	Failed     int
}

// Item is the outcome of one operation inside a run.
type Item struct {
	RunID      string
	Kind       string
	Source     string
	Target     string
	Status     string
	ErrorKind  string
	Message    string
	RecordedAt time.Time
}

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	roots, err := json.Marshal(run.Roots)
	if err != nil {
		return fmt.Errorf("marshal roots: %w", err)
	}
	if err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, started_at, roots_json, dry_run, status) VALUES (?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), string(roots), run.DryRun, RunRunning,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordItem appends one outcome to a run.
func (s *Store) RecordItem(ctx context.Context, item Item) error {
	if item.RecordedAt.IsZero() {
		item.RecordedAt = time.Now()
	}
	if err := s.execWithRetry(ctx,
		`INSERT INTO run_items (run_id, kind, source, target, status, error_kind, message, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RunID, item.Kind, item.Source, nullableString(item.Target), item.Status,
		nullableString(item.ErrorKind), nullableString(item.Message), formatTime(item.RecordedAt),
	); err != nil {
		return fmt.Errorf("insert run item: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, renamed = ?, deleted = ?, jobs = ?, failed = ? WHERE id = ?`,
		formatTime(run.FinishedAt), run.Status, run.Renamed, run.Deleted, run.Jobs, run.Failed, run.ID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, started_at, finished_at, roots_json, dry_run, status, renamed, deleted, jobs, failed
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
			roots    string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &roots, &run.DryRun, &run.Status,
			&run.Renamed, &run.Deleted, &run.Jobs, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			run.FinishedAt = parseTime(finished.String)
		}
		if err := json.Unmarshal([]byte(roots), &run.Roots); err != nil {
			return nil, fmt.Errorf("decode roots for run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Items returns a run's outcomes in recording order.
func (s *Store) Items(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, kind, source, target, status, error_kind, message, recorded_at
         FROM run_items WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item                     Item
			target, errKind, message sql.NullString
			recorded                 string
		)
		if err := rows.Scan(&item.RunID, &item.Kind, &item.Source, &target, &item.Status,
			&errKind, &message, &recorded); err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		item.Target = target.String
		item.ErrorKind = errKind.String
		item.Message = message.String
		item.RecordedAt = parseTime(recorded)
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Prune deletes all but the keep most recent runs, with their items, and
// reports how many runs were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`, keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return int(removed), nil
}
