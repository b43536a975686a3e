package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// SchedulerStore persists scheduler tasks across restarts along with a
// bounded log of their runs.
type SchedulerStore interface {
	// GetTask returns nil and no error if the task does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns all tasks.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or replaces a task by ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// RecordRun appends one execution to the run log.
	RecordRun(ctx context.Context, run *domain.TaskResult) error

	// RecentRuns returns up to limit runs of a task, newest first.
	RecentRuns(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// TrimRuns keeps only the newest keep runs of each task.
	TrimRuns(ctx context.Context, keep int) error
}
