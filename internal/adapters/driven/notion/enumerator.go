package notion

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure Enumerator implements the interface.
var _ driven.Enumerator = (*Enumerator)(nil)

// DefaultConcurrency is the number of resources read in parallel.
const DefaultConcurrency = 4

// Workspaces maps a team to the API client of its connected workspace.
type Workspaces map[int64]API

// Get returns the client for a team.
func (w Workspaces) Get(teamID int64) (API, error) {
	api, ok := w[teamID]
	if !ok || api == nil {
		return nil, fmt.Errorf("%w: no notion workspace for team %d", domain.ErrNotFound, teamID)
	}
	return api, nil
}

// Enumerator performs the bulk read of a workspace.
type Enumerator struct {
	workspaces  Workspaces
	maxDepth    int
	concurrency int
}

// EnumeratorOption configures an Enumerator.
type EnumeratorOption func(*Enumerator)

// WithMaxDepth bounds block recursion.
func WithMaxDepth(depth int) EnumeratorOption {
	return func(e *Enumerator) { e.maxDepth = depth }
}

// WithConcurrency bounds the resources read in parallel.
func WithConcurrency(n int) EnumeratorOption {
	return func(e *Enumerator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEnumerator creates an enumerator over the given workspaces.
func NewEnumerator(workspaces Workspaces, opts ...EnumeratorOption) *Enumerator {
	e := &Enumerator{
		workspaces:  workspaces,
		maxDepth:    domain.MaxDepthLimit,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enumerate searches the workspace and emits one job per page (with its
// block tree), one per database and one per database's rows.
//
// A resource that cannot be read is logged and skipped. Search failures end
// the enumeration and are reported on the error channel.
func (e *Enumerator) Enumerate(ctx context.Context, teamID int64) (<-chan domain.IndexJob, <-chan error) {
	jobs := make(chan domain.IndexJob, e.concurrency)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(jobs)

		api, err := e.workspaces.Get(teamID)
		if err != nil {
			errs <- err
			return
		}
		if err := e.enumerate(ctx, api, teamID, jobs); err != nil {
			errs <- err
		}
	}()

	return jobs, errs
}

func (e *Enumerator) enumerate(ctx context.Context, api API, teamID int64, jobs chan<- domain.IndexJob) error {
	r := newReader(api, e.maxDepth)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	var skipped atomic.Int64
	emit := func(job domain.IndexJob) error {
		select {
		case jobs <- job:
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	}

	cursor := ""
	for {
		if err := gctx.Err(); err != nil {
			_ = g.Wait()
			return err
		}
		resp, err := api.Search(gctx, cursor)
		if err != nil {
			_ = g.Wait()
			return fmt.Errorf("search: %w", err)
		}

		for _, obj := range resp.Results {
			g.Go(func() error {
				built, err := e.jobsFor(gctx, r, teamID, obj)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					skipped.Add(1)
					logger.Warn("team %d: skipping %v %v: %v", teamID, obj["object"], obj["id"], err)
					return nil
				}
				for _, job := range built {
					if err := emit(job); err != nil {
						return err
					}
				}
				return nil
			})
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if n := skipped.Load(); n > 0 {
		logger.Warn("team %d: %d resources skipped during enumeration", teamID, n)
	}
	return nil
}

// jobsFor reads whatever one search result needs and builds its jobs.
func (e *Enumerator) jobsFor(ctx context.Context, r *reader, teamID int64, obj map[string]any) ([]domain.IndexJob, error) {
	id, err := objectID(obj)
	if err != nil {
		return nil, err
	}

	switch obj["object"] {
	case "page":
		page, err := r.withChildren(ctx, obj)
		if err != nil {
			return nil, err
		}
		return []domain.IndexJob{newJob(domain.SourceNotionPage, teamID, id, page)}, nil

	case "database":
		rows, err := r.rows(ctx, id)
		if err != nil {
			return nil, err
		}
		return []domain.IndexJob{
			newJob(domain.SourceNotionDatabase, teamID, id, obj),
			newJob(domain.SourceNotionDatabaseQuery, teamID, id, rows),
		}, nil

	default:
		return nil, fmt.Errorf("%w: object type %v", domain.ErrUnsupportedType, obj["object"])
	}
}

func newJob(sourceType domain.SourceType, teamID int64, resourceID string, payload map[string]any) domain.IndexJob {
	return domain.IndexJob{
		SourceType: sourceType,
		TeamID:     teamID,
		APIPath:    sourceType.DefaultAPIPath(),
		ResourceID: resourceID,
		Payload:    payload,
	}
}
