package hnsw

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/coder/hnsw"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/docsync/internal/adapters/driven/vector/filter"
	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Defaults.
const (
	// DefaultM is the graph degree.
	DefaultM = 16

	// DefaultEfSearch is the candidate list size during search.
	DefaultEfSearch = 20

	// DefaultQueryCacheSize is the number of query embeddings kept in memory.
	DefaultQueryCacheSize = 512

	// oversample multiplies topK for the first filtered graph search.
	oversample = 4

	// compactMinOrphans is the orphan count below which the graph is never rebuilt.
	compactMinOrphans = 64
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("vector store is closed")

// ErrDimensionMismatch is returned when an embedding has the wrong size.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// entry is one live record in the graph.
type entry struct {
	record domain.VectorRecord
	vector []float32
}

// Store is a driven.VectorStore over an in-process HNSW graph.
//
// Chunk text is embedded with the configured EmbeddingService. Replaced and
// deleted nodes are orphaned in the graph rather than removed; the graph is
// rebuilt once orphans outnumber live nodes. When a VectorRecordStore is
// configured every mutation is written through to it before the graph
// changes, and New reloads the graph from it.
type Store struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	embedder driven.EmbeddingService
	records  driven.VectorRecordStore
	cache    *lru.Cache[string, []float32]
	cfg      config

	dims    int
	idMap   map[string]uint64
	entries map[uint64]entry
	nextKey uint64
	closed  bool
}

type config struct {
	m         int
	efSearch  int
	cacheSize int
}

// Option configures a Store.
type Option func(*Store)

// WithRecordStore enables write-through persistence.
func WithRecordStore(records driven.VectorRecordStore) Option {
	return func(s *Store) {
		s.records = records
	}
}

// WithGraphParams overrides the HNSW degree and search width.
func WithGraphParams(m, efSearch int) Option {
	return func(s *Store) {
		if m > 0 {
			s.cfg.m = m
		}
		if efSearch > 0 {
			s.cfg.efSearch = efSearch
		}
	}
}

// WithQueryCacheSize sets the number of cached query embeddings.
func WithQueryCacheSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cfg.cacheSize = n
		}
	}
}

// New creates a store and loads any persisted records into the graph.
func New(ctx context.Context, embedder driven.EmbeddingService, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	s := &Store{
		embedder: embedder,
		cfg: config{
			m:         DefaultM,
			efSearch:  DefaultEfSearch,
			cacheSize: DefaultQueryCacheSize,
		},
		dims:    embedder.Dimensions(),
		idMap:   make(map[string]uint64),
		entries: make(map[uint64]entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.graph = s.newGraph()
	cache, err := lru.New[string, []float32](s.cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	s.cache = cache

	if s.records != nil {
		if err := s.load(ctx); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = s.cfg.m
	g.EfSearch = s.cfg.efSearch
	g.Ml = 0.25
	return g
}

// load rebuilds the graph from persisted records. Records embedded with a
// different dimension (a changed model) are embedded again and re-saved.
func (s *Store) load(ctx context.Context) error {
	stored, err := s.records.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	var stale []domain.VectorRecord
	for _, rec := range stored {
		if s.dims > 0 && len(rec.Embedding) != s.dims {
			stale = append(stale, rec.Record)
			continue
		}
		s.insert(rec.Record, rec.Embedding)
	}

	if len(stale) > 0 {
		logger.Info("re-embedding %d records after a model change", len(stale))
		if err := s.Add(ctx, stale); err != nil {
			return fmt.Errorf("re-embedding records: %w", err)
		}
	}

	logger.Debug("hnsw store loaded %d records", len(s.idMap))
	return nil
}

// Add embeds and inserts records, replacing any with the same ID.
func (s *Store) Add(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if s.isClosed() {
		return ErrClosed
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding records: %w", err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("embedding records: got %d vectors for %d records", len(vectors), len(records))
	}

	embedded := make([]domain.EmbeddedRecord, len(records))
	s.mu.RLock()
	for i, rec := range records {
		if err := s.checkDims(vectors[i]); err != nil {
			s.mu.RUnlock()
			return err
		}
		embedded[i] = domain.EmbeddedRecord{Record: rec, Embedding: vectors[i]}
	}
	s.mu.RUnlock()

	if s.records != nil {
		if err := s.records.SaveRecords(ctx, embedded); err != nil {
			return fmt.Errorf("persisting records: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, rec := range embedded {
		s.insert(rec.Record, rec.Embedding)
	}
	// Replacing an ID orphans its old node, so re-indexing alone can grow the graph.
	s.compactIfNeeded()
	return nil
}

// insert adds one record to the graph (caller holds the lock or owns s).
func (s *Store) insert(rec domain.VectorRecord, vector []float32) {
	if s.dims == 0 {
		s.dims = len(vector)
	}
	if old, ok := s.idMap[rec.ID]; ok {
		delete(s.entries, old)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)

	key := s.nextKey
	s.nextKey++
	s.graph.Add(hnsw.MakeNode(key, vec))
	s.idMap[rec.ID] = key
	s.entries[key] = entry{record: cloneRecord(rec), vector: vec}
}

// Delete removes records by ID. Unknown IDs are ignored.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if s.isClosed() {
		return ErrClosed
	}

	if s.records != nil {
		if err := s.records.DeleteRecords(ctx, ids); err != nil {
			return fmt.Errorf("persisting deletion: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, id := range ids {
		if key, ok := s.idMap[id]; ok {
			delete(s.entries, key)
			delete(s.idMap, id)
		}
	}
	s.compactIfNeeded()
	return nil
}

// compactIfNeeded rebuilds the graph from live entries once orphaned nodes
// outnumber them (caller holds the lock).
func (s *Store) compactIfNeeded() {
	orphans := s.graph.Len() - len(s.entries)
	if orphans < compactMinOrphans || orphans <= len(s.entries) {
		return
	}

	graph := s.newGraph()
	idMap := make(map[string]uint64, len(s.entries))
	entries := make(map[uint64]entry, len(s.entries))
	var next uint64
	for _, key := range sortedKeys(s.entries) {
		e := s.entries[key]
		graph.Add(hnsw.MakeNode(next, e.vector))
		idMap[e.record.ID] = next
		entries[next] = e
		next++
	}

	logger.Debug("hnsw store compacted: %d orphans dropped, %d live", orphans, len(entries))
	s.graph, s.idMap, s.entries, s.nextKey = graph, idMap, entries, next
}

// SimilaritySearch returns up to topK records closest to query that satisfy filter.
func (s *Store) SimilaritySearch(
	ctx context.Context, query string, topK int, filterExpr string,
) ([]domain.ScoredRecord, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	expr, err := filter.Parse(filterExpr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if topK <= 0 || strings.TrimSpace(query) == "" {
		return []domain.ScoredRecord{}, nil
	}

	vec, err := s.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return []domain.ScoredRecord{}, nil
	}
	if err := s.checkDims(vec); err != nil {
		return nil, err
	}

	hits := s.searchGraph(vec, topK, expr)
	if len(hits) < topK {
		// The approximate pass can miss matches behind a selective filter.
		hits = s.scan(vec, expr)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// searchGraph runs widening graph searches until topK live matches are found
// or the whole graph has been requested.
func (s *Store) searchGraph(vec []float32, topK int, expr filter.Expr) []domain.ScoredRecord {
	total := s.graph.Len()
	k := topK * oversample
	for {
		if k > total {
			k = total
		}

		var hits []domain.ScoredRecord
		for _, node := range s.graph.Search(vec, k) {
			e, ok := s.entries[node.Key]
			if !ok || !expr.Match(e.record.Metadata) {
				continue
			}
			hits = append(hits, scored(e, vec))
		}

		if len(hits) >= topK || k >= total {
			return hits
		}
		k *= 2
	}
}

// scan scores every live entry that matches the filter.
func (s *Store) scan(vec []float32, expr filter.Expr) []domain.ScoredRecord {
	hits := make([]domain.ScoredRecord, 0, len(s.entries))
	for _, e := range s.entries {
		if expr.Match(e.record.Metadata) {
			hits = append(hits, scored(e, vec))
		}
	}
	return hits
}

// queryVector embeds a query through the LRU cache.
func (s *Store) queryVector(ctx context.Context, query string) ([]float32, error) {
	key := cacheKey(s.embedder.ModelName(), query)
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	vec = append([]float32(nil), vec...)
	normalizeInPlace(vec)
	s.cache.Add(key, vec)
	return vec, nil
}

// Exists reports which IDs are present.
func (s *Store) Exists(_ context.Context, ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		_, ok := s.idMap[id]
		out[id] = ok
	}
	return out, nil
}

// ListIDs returns every live record ID in sorted order.
func (s *Store) ListIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	ids := make([]string, 0, len(s.idMap))
	for id := range s.idMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Stats describes graph occupancy.
type Stats struct {
	Live       int
	GraphNodes int
	Orphans    int
	Dimensions int
}

// Stats returns graph occupancy counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Live:       len(s.entries),
		GraphNodes: s.graph.Len(),
		Orphans:    s.graph.Len() - len(s.entries),
		Dimensions: s.dims,
	}
}

// Close marks the store closed. The embedder and record store are owned by the caller.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cache.Purge()
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) checkDims(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty embedding", ErrDimensionMismatch)
	}
	if s.dims > 0 && len(vec) != s.dims {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, s.dims, len(vec))
	}
	return nil
}

func scored(e entry, query []float32) domain.ScoredRecord {
	return domain.ScoredRecord{
		Record: cloneRecord(e.record),
		Score:  cosineScore(query, e.vector),
	}
}

// cosineScore maps cosine distance [0,2] onto a similarity in [0,1].
func cosineScore(a, b []float32) float64 {
	d := float64(hnsw.CosineDistance(a, b))
	if math.IsNaN(d) {
		return 0
	}
	return 1 - d/2
}

func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func cloneRecord(rec domain.VectorRecord) domain.VectorRecord {
	meta := make(map[string]string, len(rec.Metadata))
	for k, v := range rec.Metadata {
		meta[k] = v
	}
	rec.Metadata = meta
	return rec
}

func sortedKeys(m map[uint64]entry) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
