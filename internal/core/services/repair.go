package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure RepairService implements the interface.
var _ driving.Repairer = (*RepairService)(nil)

// defaultRepairConcurrency bounds concurrent per-document checks.
const defaultRepairConcurrency = 4

// RepairService reconciles the vector store with the indexing state store.
//
// A state whose chunks are not all present is removed together with its
// remaining chunks, so the next trigger rewrites the document from scratch.
// Records that no state owns are deleted.
type RepairService struct {
	gateway     *VectorStoreGateway
	concurrency int
}

// NewRepairService creates a repair service over a gateway's stores.
func NewRepairService(gateway *VectorStoreGateway, concurrency int) *RepairService {
	if concurrency <= 0 {
		concurrency = defaultRepairConcurrency
	}
	return &RepairService{gateway: gateway, concurrency: concurrency}
}

// repairTally accumulates report counters across goroutines.
type repairTally struct {
	mu     sync.Mutex
	report driving.RepairReport
}

func (t *repairTally) add(fn func(r *driving.RepairReport)) {
	t.mu.Lock()
	fn(&t.report)
	t.mu.Unlock()
}

// Sweep verifies every state and removes orphaned records.
func (s *RepairService) Sweep(ctx context.Context) (*driving.RepairReport, error) {
	states, err := s.gateway.states.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}

	tally := &repairTally{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range states {
		state := states[i]
		g.Go(func() error {
			reset, err := s.verifyState(gctx, state)
			tally.add(func(r *driving.RepairReport) {
				r.Checked++
				if err != nil {
					r.Errors++
					logger.Warn("repair: verify %s: %v", state.SourceKey, err)
				}
				if reset {
					r.StatesReset++
				}
			})
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return &tally.report, err
	}

	ids, err := s.gateway.store.ListIDs(ctx)
	if err != nil {
		return &tally.report, fmt.Errorf("list records: %w", err)
	}

	byPrefix := groupByPrefix(ids)
	prefixes := make([]string, 0, len(byPrefix))
	for prefix := range byPrefix {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, prefix := range prefixes {
		records := byPrefix[prefix]
		g.Go(func() error {
			removed, err := s.removeOrphans(gctx, prefix, records)
			tally.add(func(r *driving.RepairReport) {
				r.OrphansRemoved += removed
				if err != nil {
					r.Errors++
					logger.Warn("repair: orphans under %s: %v", prefix, err)
				}
			})
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return &tally.report, err
	}

	report := tally.report
	logger.Info("repair: checked %d, reset %d, removed %d orphans, %d errors",
		report.Checked, report.StatesReset, report.OrphansRemoved, report.Errors)
	return &report, nil
}

// verifyState checks that every chunk of a state exists. When any is missing
// the state and its surviving chunks are removed. Reports whether it reset.
func (s *RepairService) verifyState(ctx context.Context, listed domain.IndexingState) (bool, error) {
	unlock := s.gateway.locks.Lock(listed.DocumentPrefix)
	defer unlock()

	state, err := s.gateway.states.Get(ctx, listed.SourceKey)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ids := state.ChunkIDs()
	if len(ids) == 0 {
		return false, nil
	}

	present, err := s.gateway.store.Exists(ctx, ids)
	if err != nil {
		return false, err
	}

	var surviving []string
	for _, id := range ids {
		if present[id] {
			surviving = append(surviving, id)
		}
	}
	if len(surviving) == len(ids) {
		return false, nil
	}

	if len(surviving) > 0 {
		if err := s.gateway.store.Delete(ctx, surviving); err != nil {
			return false, fmt.Errorf("%w: %w", domain.ErrIndexMutation, err)
		}
	}
	if err := s.gateway.states.Delete(ctx, state.SourceKey); err != nil {
		return false, err
	}

	logger.Debug("repair: reset %s, %d of %d chunks missing",
		state.SourceKey, len(ids)-len(surviving), len(ids))
	return true, nil
}

// removeOrphans deletes records under prefix beyond the owning state's chunk
// count, or all of them when no state owns the prefix.
func (s *RepairService) removeOrphans(ctx context.Context, prefix string, records []chunkRef) (int, error) {
	unlock := s.gateway.locks.Lock(prefix)
	defer unlock()

	owned := 0
	state, err := s.gateway.states.FindByPrefix(ctx, prefix)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		owned = state.ChunkCount
	}

	var orphans []string
	for _, ref := range records {
		if ref.position < 0 || ref.position >= owned {
			orphans = append(orphans, ref.id)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	if err := s.gateway.store.Delete(ctx, orphans); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIndexMutation, err)
	}
	logger.Debug("repair: removed %d orphans under %s", len(orphans), prefix)
	return len(orphans), nil
}

// chunkRef is a stored record ID with its parsed position.
// Position is -1 for IDs that do not follow the prefix-position scheme.
type chunkRef struct {
	id       string
	position int
}

func groupByPrefix(ids []string) map[string][]chunkRef {
	out := make(map[string][]chunkRef)
	for _, id := range ids {
		prefix, pos, ok := domain.ParseChunkID(id)
		if !ok {
			prefix, pos = id, -1
		}
		out[prefix] = append(out[prefix], chunkRef{id: id, position: pos})
	}
	return out
}
