package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure JobDispatcher implements the interface.
var _ driving.Dispatcher = (*JobDispatcher)(nil)

// dispatchTask is one queued unit of work. Exactly one field is set.
type dispatchTask struct {
	index *domain.IndexJob
	del   *domain.DeleteJob
}

// JobDispatcher runs indexing jobs on a bounded worker pool.
//
// Core workers live until Stop. When the queue is full, burst workers are
// started up to the configured maximum and exit after sitting idle. A job
// that finds the queue full and no burst capacity is dropped.
type JobDispatcher struct {
	indexer driving.Indexer
	cfg     domain.PipelineConfig

	queue chan dispatchTask
	wg    sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	started bool
	closed  bool
	workers int

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewJobDispatcher creates a dispatcher. Call Start before jobs can run.
func NewJobDispatcher(indexer driving.Indexer, cfg domain.PipelineConfig) *JobDispatcher {
	cfg = cfg.Normalize()
	return &JobDispatcher{
		indexer: indexer,
		cfg:     cfg,
		queue:   make(chan dispatchTask, cfg.QueueCapacity),
		ctx:     context.Background(),
	}
}

// Start launches the core workers. Jobs run under ctx; it is not used to
// stop the pool.
func (d *JobDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.closed {
		return
	}
	d.started = true
	d.ctx = context.WithoutCancel(ctx)

	for i := 0; i < d.cfg.CoreWorkers; i++ {
		d.spawnLocked(nil, false)
	}
	logger.Debug("dispatcher started with %d core workers", d.cfg.CoreWorkers)
}

// Submit queues an indexing job. A missing TraceID is generated.
func (d *JobDispatcher) Submit(job domain.IndexJob) error {
	if !d.cfg.Enabled {
		return domain.ErrPipelineDisabled
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	return d.enqueue(dispatchTask{index: &job})
}

// SubmitDelete queues the removal of one resource's indexed chunks.
func (d *JobDispatcher) SubmitDelete(job domain.DeleteJob) error {
	if !d.cfg.Enabled {
		return domain.ErrPipelineDisabled
	}
	if job.ResourceID == "" {
		return fmt.Errorf("%w: resource id is required", domain.ErrInvalidInput)
	}
	return d.enqueue(dispatchTask{del: &job})
}

func (d *JobDispatcher) enqueue(t dispatchTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return domain.ErrDispatcherClosed
	}

	select {
	case d.queue <- t:
		d.submitted.Add(1)
		return nil
	default:
	}

	if d.started && d.workers < d.cfg.MaxWorkers {
		d.submitted.Add(1)
		d.spawnLocked(&t, true)
		return nil
	}

	d.dropped.Add(1)
	logger.Warn("dispatcher queue full, dropping %s", describeTask(t))
	return domain.ErrQueueFull
}

// spawnLocked starts a worker. d.mu must be held.
func (d *JobDispatcher) spawnLocked(initial *dispatchTask, burst bool) {
	d.workers++
	d.wg.Add(1)
	go d.work(initial, burst)
}

func (d *JobDispatcher) work(initial *dispatchTask, burst bool) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		d.workers--
		d.mu.Unlock()
	}()

	if initial != nil {
		d.run(*initial)
	}

	if !burst {
		for t := range d.queue {
			d.run(t)
		}
		return
	}

	idle := time.NewTimer(d.cfg.BurstIdleTimeout)
	defer idle.Stop()
	for {
		select {
		case t, ok := <-d.queue:
			if !ok {
				return
			}
			d.run(t)
			idle.Reset(d.cfg.BurstIdleTimeout)
		case <-idle.C:
			return
		}
	}
}

// run executes one task. Failures and panics are logged and never escape.
func (d *JobDispatcher) run(t dispatchTask) {
	log := taskLogger(t)
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			log.Error("index job panicked", "panic", fmt.Sprint(r))
		}
	}()

	var err error
	if t.index != nil {
		var res *driving.IndexResult
		res, err = d.indexer.Index(d.ctx, *t.index)
		if err == nil {
			log.Debug("index job done", "outcome", string(res.Outcome), "chunks", res.ChunkCount)
		}
	} else {
		var n int
		n, err = d.indexer.Delete(d.ctx, *t.del)
		if err == nil {
			log.Debug("delete job done", "removed", n)
		}
	}

	if err != nil {
		d.failed.Add(1)
		log.Error("index job failed", "error", err)
		return
	}
	d.completed.Add(1)
}

// Stop rejects new jobs, lets queued jobs finish and waits for all workers.
func (d *JobDispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		// Nobody will drain what was queued before Start.
		for t := range d.queue {
			d.dropped.Add(1)
			logger.Warn("dispatcher stopped before start, dropping %s", describeTask(t))
		}
		return
	}
	d.wg.Wait()
}

// Stats returns job counters.
func (d *JobDispatcher) Stats() driving.DispatcherStats {
	d.mu.Lock()
	workers := d.workers
	d.mu.Unlock()

	return driving.DispatcherStats{
		Submitted: d.submitted.Load(),
		Completed: d.completed.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
		Workers:   workers,
		Queued:    len(d.queue),
	}
}

func taskLogger(t dispatchTask) *slog.Logger {
	if t.index != nil {
		j := t.index
		return logger.With(
			"trace_id", j.TraceID,
			"source_type", string(j.SourceType),
			"team_id", j.TeamID,
			"api_path", j.APIPath,
			"resource_id", j.ResourceID,
		)
	}
	j := t.del
	return logger.With(
		"op", "delete",
		"source_type", string(j.SourceType),
		"team_id", j.TeamID,
		"resource_id", j.ResourceID,
	)
}

func describeTask(t dispatchTask) string {
	if t.index != nil {
		return fmt.Sprintf("%s job %s for team %d", t.index.SourceType, t.index.ResourceID, t.index.TeamID)
	}
	return fmt.Sprintf("delete job %s for team %d", t.del.ResourceID, t.del.TeamID)
}
