package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure IndexingStateStore implements the interface.
var _ driven.IndexingStateStore = (*IndexingStateStore)(nil)

// IndexingStateStore is an in-memory implementation of driven.IndexingStateStore.
type IndexingStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.IndexingState
}

// NewIndexingStateStore creates a new in-memory indexing state store.
func NewIndexingStateStore() *IndexingStateStore {
	return &IndexingStateStore{
		states: make(map[string]domain.IndexingState),
	}
}

// Get retrieves the state for a source key.
func (s *IndexingStateStore) Get(_ context.Context, sourceKey string) (*domain.IndexingState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sourceKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// Save creates or refreshes the state for its source key.
func (s *IndexingStateStore) Save(_ context.Context, state domain.IndexingState) error {
	if state.SourceKey == "" {
		return fmt.Errorf("%w: source key is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.SourceKey] = state
	return nil
}

// Delete removes the state for a source key.
func (s *IndexingStateStore) Delete(_ context.Context, sourceKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sourceKey)
	return nil
}

// FindByResource returns the states of one upstream resource.
func (s *IndexingStateStore) FindByResource(
	_ context.Context, sourceType domain.SourceType, teamID int64, resourceID string,
) ([]domain.IndexingState, error) {
	return s.filter(func(st domain.IndexingState) bool {
		if st.TeamID != teamID || st.ResourceID != resourceID {
			return false
		}
		return sourceType == "" || st.SourceType == sourceType
	}), nil
}

// FindByPrefix returns the state owning a document prefix.
func (s *IndexingStateStore) FindByPrefix(_ context.Context, prefix string) (*domain.IndexingState, error) {
	matches := s.filter(func(st domain.IndexingState) bool {
		return st.DocumentPrefix == prefix
	})
	if len(matches) == 0 {
		return nil, domain.ErrNotFound
	}
	return &matches[0], nil
}

// List returns all states, or one team's when teamID is non-zero.
func (s *IndexingStateStore) List(_ context.Context, teamID int64) ([]domain.IndexingState, error) {
	return s.filter(func(st domain.IndexingState) bool {
		return teamID == 0 || st.TeamID == teamID
	}), nil
}

// filter returns matching states ordered by source key.
func (s *IndexingStateStore) filter(keep func(domain.IndexingState) bool) []domain.IndexingState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.IndexingState
	for _, st := range s.states {
		if keep(st) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceKey < out[j].SourceKey })
	return out
}
