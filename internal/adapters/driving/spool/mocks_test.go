package spool

import (
	"sync"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// recordingDispatcher captures submitted jobs.
type recordingDispatcher struct {
	mu      sync.Mutex
	jobs    []domain.IndexJob
	deletes []domain.DeleteJob
}

func (d *recordingDispatcher) Submit(job domain.IndexJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *recordingDispatcher) SubmitDelete(job domain.DeleteJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deletes = append(d.deletes, job)
	return nil
}

func (d *recordingDispatcher) Stats() driving.DispatcherStats {
	return driving.DispatcherStats{}
}

func (d *recordingDispatcher) submitted() []domain.IndexJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.IndexJob(nil), d.jobs...)
}

func (d *recordingDispatcher) deleted() []domain.DeleteJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.DeleteJob(nil), d.deletes...)
}
