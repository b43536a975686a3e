package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

const (
	// runLogSize is the number of runs kept per task.
	runLogSize = 50

	// defaultTick is how often the scheduler looks for due tasks.
	defaultTick = time.Minute
)

// taskRunner executes one run of a task and reports how many items it handled.
type taskRunner func(ctx context.Context) (int, error)

var builtinTasks = []struct {
	id   string
	name string
}{
	{domain.TaskIDIndexRepair, "Index repair"},
	{domain.TaskIDWorkspaceLoad, "Workspace load"},
}

// Scheduler runs the index repair sweep and the workspace reload on their
// configured intervals. Task state survives restarts through the store.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	runners map[string]taskRunner
	tick    time.Duration

	mu       sync.Mutex
	stop     chan struct{}
	inflight map[string]bool
	wg       sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTick sets how often due tasks are checked.
func WithTick(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// NewScheduler creates a scheduler. A task whose port is nil is never
// scheduled.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	repairer driving.Repairer,
	loader driving.WorkspaceLoader,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		config:   config,
		store:    store,
		runners:  make(map[string]taskRunner),
		tick:     defaultTick,
		inflight: make(map[string]bool),
	}
	if repairer != nil {
		s.runners[domain.TaskIDIndexRepair] = func(ctx context.Context) (int, error) {
			report, err := repairer.Sweep(ctx)
			if err != nil {
				return 0, err
			}
			if report.Errors > 0 {
				return report.Checked, fmt.Errorf("%d states could not be verified", report.Errors)
			}
			return report.Checked, nil
		}
	}
	if loader != nil {
		s.runners[domain.TaskIDWorkspaceLoad] = loader.LoadAll
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start syncs task definitions with the store and runs due tasks until ctx
// is cancelled or Stop is called. A second concurrent Start returns at once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.stop == stop {
			s.stop = nil
		}
		s.mu.Unlock()
	}()

	if err := s.syncTasks(ctx); err != nil {
		logger.Warn("scheduler: syncing tasks: %v", err)
	}

	s.runDue(ctx)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// Stop ends the loop and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// syncTasks writes the configured interval and enablement of every built-in
// task. A changed interval restarts the countdown from now.
func (s *Scheduler) syncTasks(ctx context.Context) error {
	now := time.Now()
	for _, bt := range builtinTasks {
		cfg := s.config.GetTaskConfig(bt.id)
		_, runnable := s.runners[bt.id]
		enabled := s.config.Enabled && cfg.Enabled && cfg.Interval > 0 && runnable

		task, err := s.store.GetTask(ctx, bt.id)
		if err != nil {
			return fmt.Errorf("loading task %s: %w", bt.id, err)
		}
		if task == nil {
			if !enabled {
				continue
			}
			task = &domain.ScheduledTask{ID: bt.id, Name: bt.name}
		}

		if task.Interval != cfg.Interval || task.NextRun.IsZero() {
			task.Interval = cfg.Interval
			task.NextRun = now.Add(cfg.Interval)
		}
		task.Enabled = enabled

		if err := s.store.SaveTask(ctx, task); err != nil {
			return fmt.Errorf("saving task %s: %w", bt.id, err)
		}
	}
	return nil
}

// runDue launches every enabled task whose next run has passed and that is
// not already running.
func (s *Scheduler) runDue(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: listing tasks: %v", err)
		return
	}

	now := time.Now()
	for _, task := range tasks {
		if !task.Enabled || task.NextRun.After(now) {
			continue
		}

		s.mu.Lock()
		if s.inflight[task.ID] {
			s.mu.Unlock()
			logger.Debug("scheduler: %s still running, skipping", task.ID)
			continue
		}
		s.inflight[task.ID] = true
		s.wg.Add(1)
		s.mu.Unlock()

		go func(task domain.ScheduledTask) {
			defer func() {
				s.mu.Lock()
				delete(s.inflight, task.ID)
				s.mu.Unlock()
				s.wg.Done()
			}()
			s.execute(ctx, &task)
		}(task)
	}
}

// execute runs one task, then persists its next run and the run record.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) {
	runner, ok := s.runners[task.ID]
	if !ok {
		logger.Warn("scheduler: no runner for task %s", task.ID)
		return
	}

	run := domain.TaskResult{TaskID: task.ID, StartedAt: time.Now()}
	items, err := runner(ctx)
	run.EndedAt = time.Now()
	run.ItemsProcessed = items
	run.Success = err == nil

	task.LastRun = run.StartedAt
	task.NextRun = run.EndedAt.Add(task.Interval)
	if err != nil {
		run.Error = err.Error()
		task.LastError = run.Error
		logger.Error("scheduler: %s failed after %d items: %v", task.ID, items, err)
	} else {
		task.LastError = ""
		task.LastSuccess = run.EndedAt
		logger.Info("scheduler: %s finished, %d items in %s", task.ID, items, run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: saving task %s: %v", task.ID, err)
	}
	if err := s.store.RecordRun(ctx, &run); err != nil {
		logger.Warn("scheduler: recording run of %s: %v", task.ID, err)
	}
	if err := s.store.TrimRuns(ctx, runLogSize); err != nil {
		logger.Warn("scheduler: trimming run log: %v", err)
	}
}
