package services

import (
	"context"
	"sort"
	"strings"
	stdsync "sync"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockVectorStore implements driven.VectorStore in memory and records calls.
type mockVectorStore struct {
	mu      stdsync.Mutex
	records map[string]domain.VectorRecord
	deletes [][]string
	adds    [][]string
	filters []string

	addErr    error
	deleteErr error
	searchErr error
}

var _ driven.VectorStore = (*mockVectorStore)(nil)

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{records: make(map[string]domain.VectorRecord)}
}

func (m *mockVectorStore) Add(_ context.Context, records []domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		m.records[r.ID] = r
		ids = append(ids, r.ID)
	}
	m.adds = append(m.adds, ids)
	return nil
}

func (m *mockVectorStore) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, id := range ids {
		delete(m.records, id)
	}
	m.deletes = append(m.deletes, append([]string(nil), ids...))
	return nil
}

func (m *mockVectorStore) SimilaritySearch(_ context.Context, query string, topK int, filter string) ([]domain.ScoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var hits []domain.ScoredRecord
	for _, id := range m.sortedIDs() {
		r := m.records[id]
		if strings.Contains(r.Text, query) {
			hits = append(hits, domain.ScoredRecord{Record: r, Score: 1})
		}
		if len(hits) == topK {
			break
		}
	}
	return hits, nil
}

func (m *mockVectorStore) Exists(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		_, ok := m.records[id]
		out[id] = ok
	}
	return out, nil
}

func (m *mockVectorStore) ListIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedIDs(), nil
}

func (m *mockVectorStore) Close() error { return nil }

func (m *mockVectorStore) sortedIDs() []string {
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *mockVectorStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockVectorStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

// mockStateStore implements driven.IndexingStateStore in memory.
type mockStateStore struct {
	mu     stdsync.Mutex
	states map[string]domain.IndexingState
	saves  int

	getErr  error
	saveErr error
}

var _ driven.IndexingStateStore = (*mockStateStore)(nil)

func newMockStateStore() *mockStateStore {
	return &mockStateStore{states: make(map[string]domain.IndexingState)}
}

func (m *mockStateStore) Get(_ context.Context, sourceKey string) (*domain.IndexingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.states[sourceKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *mockStateStore) Save(_ context.Context, state domain.IndexingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[state.SourceKey] = state
	m.saves++
	return nil
}

func (m *mockStateStore) Delete(_ context.Context, sourceKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sourceKey)
	return nil
}

func (m *mockStateStore) FindByResource(
	_ context.Context,
	sourceType domain.SourceType,
	teamID int64,
	resourceID string,
) ([]domain.IndexingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.IndexingState
	for _, s := range m.states {
		if s.TeamID != teamID || s.ResourceID != resourceID {
			continue
		}
		if sourceType != "" && s.SourceType != sourceType {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceKey < out[j].SourceKey })
	return out, nil
}

func (m *mockStateStore) FindByPrefix(_ context.Context, prefix string) (*domain.IndexingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.states {
		if s.DocumentPrefix == prefix {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStateStore) List(_ context.Context, teamID int64) ([]domain.IndexingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.IndexingState
	for _, s := range m.states {
		if teamID != 0 && s.TeamID != teamID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceKey < out[j].SourceKey })
	return out, nil
}

func (m *mockStateStore) get(sourceKey string) (domain.IndexingState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[sourceKey]
	return s, ok
}
