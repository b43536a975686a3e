package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

const taskColumns = `id, name, interval_ms, enabled, next_run_at, last_run_at, last_success_at, last_error`

// schedulerStore persists scheduler tasks and their run log.
type schedulerStore struct {
	store *Store
}

// Ensure schedulerStore implements the interface.
var _ driven.SchedulerStore = (*schedulerStore)(nil)

// GetTask returns nil and no error for an unknown task.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM scheduler_tasks WHERE id = ?`, taskID)

	task, err := scanTask(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return task, err
}

// ListTasks returns every task ordered by ID.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM scheduler_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing scheduler tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing scheduler tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask inserts the task or replaces the row with the same ID.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("%w: task requires an id", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduler_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_ms = excluded.interval_ms,
			enabled = excluded.enabled,
			next_run_at = excluded.next_run_at,
			last_run_at = excluded.last_run_at,
			last_success_at = excluded.last_success_at,
			last_error = excluded.last_error
	`, task.ID, task.Name, task.Interval.Milliseconds(), task.Enabled,
		formatTime(task.NextRun), formatTime(task.LastRun), formatTime(task.LastSuccess),
		task.LastError)
	if err != nil {
		return fmt.Errorf("saving scheduler task %s: %w", task.ID, err)
	}
	return nil
}

// RecordRun appends one execution to the run log.
func (s *schedulerStore) RecordRun(ctx context.Context, run *domain.TaskResult) error {
	if run == nil || run.TaskID == "" {
		return fmt.Errorf("%w: run requires a task id", domain.ErrInvalidInput)
	}

	duration := run.EndedAt.Sub(run.StartedAt)
	if duration < 0 {
		duration = 0
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO task_runs (task_id, started_at, duration_ms, ok, error, items)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.TaskID, formatTime(run.StartedAt), duration.Milliseconds(), run.Success,
		run.Error, run.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("recording run of %s: %w", run.TaskID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs of a task, newest first.
func (s *schedulerStore) RecentRuns(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, started_at, duration_ms, ok, error, items
		FROM task_runs WHERE task_id = ?
		ORDER BY seq DESC LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading runs of %s: %w", taskID, err)
	}
	defer rows.Close()

	var runs []domain.TaskResult
	for rows.Next() {
		var run domain.TaskResult
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&run.TaskID, &startedAt, &durationMS, &run.Success,
			&run.Error, &run.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("scanning task run: %w", err)
		}
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		run.EndedAt = run.StartedAt.Add(time.Duration(durationMS) * time.Millisecond)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading runs of %s: %w", taskID, err)
	}
	return runs, nil
}

// TrimRuns keeps the newest keep runs of every task.
func (s *schedulerStore) TrimRuns(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_runs WHERE seq IN (
			SELECT seq FROM (
				SELECT seq, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY seq DESC) AS rn
				FROM task_runs
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("trimming task runs: %w", err)
	}
	return nil
}

func scanTask(row rowScanner) (*domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	var intervalMS int64
	var nextRun, lastRun, lastSuccess string

	if err := row.Scan(&task.ID, &task.Name, &intervalMS, &task.Enabled,
		&nextRun, &lastRun, &lastSuccess, &task.LastError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning scheduler task: %w", err)
	}

	task.Interval = time.Duration(intervalMS) * time.Millisecond
	var err error
	if task.NextRun, err = parseTime(nextRun); err != nil {
		return nil, fmt.Errorf("parsing next_run_at: %w", err)
	}
	if task.LastRun, err = parseTime(lastRun); err != nil {
		return nil, fmt.Errorf("parsing last_run_at: %w", err)
	}
	if task.LastSuccess, err = parseTime(lastSuccess); err != nil {
		return nil, fmt.Errorf("parsing last_success_at: %w", err)
	}
	return &task, nil
}

// formatTime stores the zero time as the empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
