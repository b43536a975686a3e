package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure VectorStoreGateway implements the interface.
var _ driving.ContextSearch = (*VectorStoreGateway)(nil)

// VectorStoreGateway keeps the vector store consistent with the indexing
// state store. Work on the same document prefix is serialised.
type VectorStoreGateway struct {
	store  driven.VectorStore
	states driven.IndexingStateStore
	locks  *keyLock
	topK   int
	now    func() time.Time
}

// GatewayOption configures a VectorStoreGateway.
type GatewayOption func(*VectorStoreGateway)

// WithTopK sets the default number of query hits.
func WithTopK(k int) GatewayOption {
	return func(g *VectorStoreGateway) {
		if k > 0 {
			g.topK = k
		}
	}
}

// WithClock overrides the time source used for state and metadata timestamps.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *VectorStoreGateway) {
		if now != nil {
			g.now = now
		}
	}
}

// NewVectorStoreGateway creates a gateway over a vector store and a state store.
func NewVectorStoreGateway(
	store driven.VectorStore,
	states driven.IndexingStateStore,
	opts ...GatewayOption,
) *VectorStoreGateway {
	g := &VectorStoreGateway{
		store:  store,
		states: states,
		locks:  newKeyLock(defaultLockStripes),
		topK:   domain.DefaultTopK,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Upsert writes the chunks of one document and refreshes its state.
//
// Blank text is a no-op. A document whose content hash matches the stored
// state is skipped. Otherwise stale records are deleted, every chunk is
// written and the state row is saved, in that order.
func (g *VectorStoreGateway) Upsert(
	ctx context.Context,
	job *domain.IndexJob,
	chunks []string,
	text string,
	info domain.DocumentInfo,
) (*driving.IndexResult, error) {
	sourceKey := BuildSourceKey(job)
	prefix := DocumentPrefix(sourceKey)

	result := &driving.IndexResult{
		SourceKey:      sourceKey,
		DocumentPrefix: prefix,
	}

	if strings.TrimSpace(text) == "" || len(chunks) == 0 {
		result.Outcome = driving.OutcomeEmpty
		return result, nil
	}

	hash := SHA256Hex(text)
	result.ContentHash = hash

	unlock := g.locks.Lock(prefix)
	defer unlock()

	prev, err := g.lookup(ctx, sourceKey)
	if err != nil {
		return nil, err
	}

	if prev != nil && prev.ContentHash == hash {
		result.Outcome = driving.OutcomeUnchanged
		result.ChunkCount = prev.ChunkCount
		return result, nil
	}

	stale := staleChunkIDs(prev, prefix, len(chunks))
	if len(stale) > 0 {
		if err := g.store.Delete(ctx, stale); err != nil {
			return nil, fmt.Errorf("%w: delete stale chunks: %w", domain.ErrIndexMutation, err)
		}
	}

	now := g.now().UTC()
	records := ToVectorRecords(job, sourceKey, prefix, chunks, info, now)
	if err := g.store.Add(ctx, records); err != nil {
		return nil, fmt.Errorf("%w: add chunks: %w", domain.ErrIndexMutation, err)
	}

	state := domain.IndexingState{
		SourceKey:      sourceKey,
		SourceType:     job.SourceType,
		TeamID:         job.TeamID,
		APIPath:        job.APIPath,
		ResourceID:     job.ResourceID,
		DocumentPrefix: prefix,
		ContentHash:    hash,
		ChunkCount:     len(chunks),
		UpdatedAt:      now,
	}
	if err := g.states.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStateSave, err)
	}

	logger.Debug("indexed %s: %d chunks, %d stale removed", sourceKey, len(records), len(stale))

	result.Outcome = driving.OutcomeIndexed
	result.ChunkCount = len(chunks)
	result.Added = len(records)
	result.Deleted = len(stale)
	return result, nil
}

// DeleteByResource removes every document of one upstream resource.
// An empty sourceType matches every source type. Returns the number of
// states removed.
func (g *VectorStoreGateway) DeleteByResource(
	ctx context.Context,
	sourceType domain.SourceType,
	teamID int64,
	resourceID string,
) (int, error) {
	if strings.TrimSpace(resourceID) == "" {
		return 0, fmt.Errorf("%w: resource id is required", domain.ErrInvalidInput)
	}

	states, err := g.states.FindByResource(ctx, sourceType, teamID, resourceID)
	if err != nil {
		return 0, fmt.Errorf("find states: %w", err)
	}

	removed := 0
	for i := range states {
		if err := g.evict(ctx, &states[i]); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// evict deletes one state's chunks and then its row.
func (g *VectorStoreGateway) evict(ctx context.Context, state *domain.IndexingState) error {
	unlock := g.locks.Lock(state.DocumentPrefix)
	defer unlock()

	if ids := state.ChunkIDs(); len(ids) > 0 {
		if err := g.store.Delete(ctx, ids); err != nil {
			return fmt.Errorf("%w: delete %s: %w", domain.ErrIndexMutation, state.SourceKey, err)
		}
	}
	if err := g.states.Delete(ctx, state.SourceKey); err != nil {
		return fmt.Errorf("delete state %s: %w", state.SourceKey, err)
	}

	logger.Debug("evicted %s (%d chunks)", state.SourceKey, state.ChunkCount)
	return nil
}

// Query runs a filtered similarity search. Blank text returns no results.
func (g *VectorStoreGateway) Query(ctx context.Context, opts domain.QueryOptions) ([]domain.ScoredRecord, error) {
	if strings.TrimSpace(opts.Text) == "" {
		return []domain.ScoredRecord{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = g.topK
	}

	hits, err := g.store.SimilaritySearch(ctx, opts.Text, topK, BuildFilter(opts))
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if hits == nil {
		hits = []domain.ScoredRecord{}
	}
	return hits, nil
}

// States lists indexing states, or one team's when teamID is non-zero.
func (g *VectorStoreGateway) States(ctx context.Context, teamID int64) ([]domain.IndexingState, error) {
	return g.states.List(ctx, teamID)
}

// lookup returns the stored state for a key, or nil when there is none.
func (g *VectorStoreGateway) lookup(ctx context.Context, sourceKey string) (*domain.IndexingState, error) {
	prev, err := g.states.Get(ctx, sourceKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return prev, nil
}

// staleChunkIDs returns the records of prev that a write of newCount chunks
// under prefix will not overwrite.
func staleChunkIDs(prev *domain.IndexingState, prefix string, newCount int) []string {
	if prev == nil {
		return nil
	}
	if prev.DocumentPrefix != prefix {
		return prev.ChunkIDs()
	}
	return domain.ChunkIDRange(prefix, newCount, prev.ChunkCount)
}
