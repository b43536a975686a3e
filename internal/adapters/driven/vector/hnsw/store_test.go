package hnsw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// keywordEmbedder maps each vocabulary word to one axis.
type keywordEmbedder struct {
	mu        sync.Mutex
	dims      int
	calls     int
	shortText string
}

var vocabulary = []string{"alpha", "beta", "gamma", "delta"}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{dims: len(vocabulary)}
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *keywordEmbedder) vector(text string) []float32 {
	if e.shortText != "" && text == e.shortText {
		return []float32{1}
	}
	vec := make([]float32, e.dims)
	for i := range vec {
		vec[i] = 0.01
	}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		for i, v := range vocabulary {
			if word == v && i < e.dims {
				vec[i]++
			}
		}
	}
	return vec
}

func (e *keywordEmbedder) embedCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *keywordEmbedder) Dimensions() int              { return e.dims }
func (e *keywordEmbedder) ModelName() string            { return "keyword" }
func (e *keywordEmbedder) Ping(_ context.Context) error { return nil }
func (e *keywordEmbedder) Close() error                 { return nil }

// memRecordStore is an in-memory driven.VectorRecordStore.
type memRecordStore struct {
	mu      sync.Mutex
	records map[string]domain.EmbeddedRecord
	saveErr error
	saves   int
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{records: make(map[string]domain.EmbeddedRecord)}
}

func (m *memRecordStore) SaveRecords(_ context.Context, records []domain.EmbeddedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	for _, r := range records {
		m.records[r.Record.ID] = r
	}
	return nil
}

func (m *memRecordStore) DeleteRecords(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *memRecordStore) LoadRecords(_ context.Context) ([]domain.EmbeddedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EmbeddedRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func record(id, text, team string) domain.VectorRecord {
	return domain.VectorRecord{
		ID:       id,
		Text:     text,
		Metadata: map[string]string{domain.MetaTeamID: team},
	}
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *keywordEmbedder) {
	t.Helper()
	embedder := newKeywordEmbedder()
	store, err := New(context.Background(), embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, embedder
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestStore_AddAndSearch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []domain.VectorRecord{
		record("a-0", "alpha", "1"),
		record("b-0", "beta", "1"),
		record("g-0", "gamma", "1"),
	}))

	hits, err := store.SimilaritySearch(ctx, "alpha", 2, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a-0", hits[0].Record.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-4)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestStore_SearchWithFilter(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []domain.VectorRecord{
		record("a-0", "alpha", "1"),
		record("a-1", "alpha beta", "2"),
		record("b-0", "beta", "2"),
	}))

	hits, err := store.SimilaritySearch(ctx, "alpha", 5, "teamId == '2'")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a-1", hits[0].Record.ID)
	for _, h := range hits {
		assert.Equal(t, "2", h.Record.Metadata[domain.MetaTeamID])
	}
}

func TestStore_SelectiveFilterFindsDistantMatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var records []domain.VectorRecord
	for i := 0; i < 50; i++ {
		records = append(records, record(fmt.Sprintf("a-%d", i), "alpha", "1"))
	}
	records = append(records, record("d-0", "delta", "2"))
	require.NoError(t, store.Add(ctx, records))

	hits, err := store.SimilaritySearch(ctx, "alpha", 1, "teamId == '2'")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d-0", hits[0].Record.ID)
}

func TestStore_AddReplacesByID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []domain.VectorRecord{record("x-0", "alpha", "1")}))
	require.NoError(t, store.Add(ctx, []domain.VectorRecord{record("x-0", "beta", "1")}))

	stats := store.Stats()
	assert.Equal(t, 1, stats.Live)
	assert.Equal(t, 2, stats.GraphNodes)
	assert.Equal(t, 1, stats.Orphans)
	assert.Equal(t, 4, stats.Dimensions)

	hits, err := store.SimilaritySearch(ctx, "beta", 5, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "beta", hits[0].Record.Text)
}

func TestStore_DeleteExistsListIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []domain.VectorRecord{
		record("p-1", "alpha", "1"),
		record("p-0", "beta", "1"),
		record("q-0", "gamma", "1"),
	}))

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-0", "p-1", "q-0"}, ids)

	require.NoError(t, store.Delete(ctx, []string{"p-1", "missing"}))

	exists, err := store.Exists(ctx, []string{"p-0", "p-1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"p-0": true, "p-1": false, "missing": false}, exists)

	hits, err := store.SimilaritySearch(ctx, "alpha", 5, "")
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "p-1", h.Record.ID)
	}
}

func TestStore_EmptyInputs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, store.Add(ctx, nil))
	assert.NoError(t, store.Delete(ctx, nil))

	hits, err := store.SimilaritySearch(ctx, "alpha", 5, "")
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	require.NoError(t, store.Add(ctx, []domain.VectorRecord{record("a-0", "alpha", "1")}))

	hits, err = store.SimilaritySearch(ctx, "   ", 5, "")
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	hits, err = store.SimilaritySearch(ctx, "alpha", 0, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_InvalidFilter(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.SimilaritySearch(context.Background(), "alpha", 5, "teamId = 1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_QueryEmbeddingCached(t *testing.T) {
	store, embedder := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, []domain.VectorRecord{record("a-0", "alpha", "1")}))

	for i := 0; i < 3; i++ {
		_, err := store.SimilaritySearch(ctx, "alpha", 1, "")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, embedder.embedCalls())
}

func TestStore_DimensionMismatch(t *testing.T) {
	store, embedder := newTestStore(t)
	embedder.shortText = "short"

	err := store.Add(context.Background(), []domain.VectorRecord{record("s-0", "short", "1")})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, store.Stats().Live)
}

func TestStore_WriteThroughAndReload(t *testing.T) {
	records := newMemRecordStore()
	ctx := context.Background()

	store, _ := newTestStore(t, WithRecordStore(records))
	require.NoError(t, store.Add(ctx, []domain.VectorRecord{
		record("a-0", "alpha", "1"),
		record("b-0", "beta", "1"),
	}))
	require.NoError(t, store.Delete(ctx, []string{"b-0"}))
	assert.Len(t, records.records, 1)
	require.NoError(t, store.Close())

	reloaded, _ := newTestStore(t, WithRecordStore(records))
	ids, err := reloaded.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-0"}, ids)

	hits, err := reloaded.SimilaritySearch(ctx, "alpha", 1, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a-0", hits[0].Record.ID)
}

func TestStore_ReloadReembedsOnDimensionChange(t *testing.T) {
	records := newMemRecordStore()
	records.records["a-0"] = domain.EmbeddedRecord{
		Record:    record("a-0", "alpha", "1"),
		Embedding: []float32{1, 0},
	}

	store, _ := newTestStore(t, WithRecordStore(records))
	assert.Equal(t, 1, store.Stats().Live)
	assert.Len(t, records.records["a-0"].Embedding, 4)
}

func TestStore_PersistFailureLeavesGraphUntouched(t *testing.T) {
	records := newMemRecordStore()
	store, _ := newTestStore(t, WithRecordStore(records))

	records.saveErr = errors.New("disk full")
	err := store.Add(context.Background(), []domain.VectorRecord{record("a-0", "alpha", "1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, store.Stats().Live)
}

func TestStore_CompactsOrphans(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var records []domain.VectorRecord
	var doomed []string
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("r-%d", i)
		records = append(records, record(id, vocabulary[i%len(vocabulary)], "1"))
		if i >= 20 {
			doomed = append(doomed, id)
		}
	}
	require.NoError(t, store.Add(ctx, records))
	require.NoError(t, store.Delete(ctx, doomed))

	stats := store.Stats()
	assert.Equal(t, 20, stats.Live)
	assert.Equal(t, 20, stats.GraphNodes)
	assert.Equal(t, 0, stats.Orphans)

	hits, err := store.SimilaritySearch(ctx, "beta", 1, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "beta", hits[0].Record.Text)
}

func TestStore_ReindexingSameIDsStaysBounded(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		records := make([]domain.VectorRecord, 10)
		for i := range records {
			records[i] = record(fmt.Sprintf("p-%d", i), vocabulary[(i+round)%len(vocabulary)], "1")
		}
		require.NoError(t, store.Add(ctx, records))

		stats := store.Stats()
		assert.Equal(t, 10, stats.Live)
		assert.LessOrEqual(t, stats.Orphans, compactMinOrphans, "round %d", round)
	}

	assert.LessOrEqual(t, store.Stats().GraphNodes, 10+compactMinOrphans)

	hits, err := store.SimilaritySearch(ctx, "gamma", 10, "")
	require.NoError(t, err)
	assert.Len(t, hits, 10)
}

func TestStore_Closed(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Add(ctx, []domain.VectorRecord{record("a-0", "alpha", "1")}), ErrClosed)
	assert.ErrorIs(t, store.Delete(ctx, []string{"a-0"}), ErrClosed)
	_, err := store.SimilaritySearch(ctx, "alpha", 1, "")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.Exists(ctx, []string{"a-0"})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.ListIDs(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCosineScore(t *testing.T) {
	assert.InDelta(t, 1.0, cosineScore([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.5, cosineScore([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 0.0, cosineScore([]float32{1, 0}, []float32{-1, 0}), 1e-6)
}
