package driving

import "github.com/custodia-labs/docsync/internal/core/domain"

// Dispatcher accepts indexing triggers and runs them off the caller's path.
// Submission is fire-and-forget: a nil error only means the job was queued.
type Dispatcher interface {
	// Submit queues an indexing job.
	Submit(job domain.IndexJob) error

	// SubmitDelete queues the removal of one resource's indexed chunks.
	SubmitDelete(job domain.DeleteJob) error

	// Stats returns job counters.
	Stats() DispatcherStats
}

// DispatcherStats counts jobs by outcome.
type DispatcherStats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Dropped   int64
	Workers   int
	Queued    int
}
