// Package static provides a dependency-free hashing embedder.
//
// Vectors are built by hashing word tokens and character trigrams into a fixed
// number of buckets. Quality is far below a learned model, but results are
// deterministic and need no network, which suits offline runs and tests.
package static

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults.
const (
	DefaultDimensions = 256
	ModelName         = "static-hash-v1"
)

// Weights for vector generation.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("static embedder is closed")

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// stopWords are dropped before token hashing.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "the": true, "to": true,
	"was": true, "with": true,
}

// EmbeddingService generates hash-based embeddings.
type EmbeddingService struct {
	mu         sync.RWMutex
	dimensions int
	closed     bool
}

// NewEmbeddingService creates a static embedder. Non-positive dimensions use the default.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a unit-length embedding. Blank text yields the zero vector.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.vector(text), nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	vec := make([]float32, s.dimensions)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return vec
	}

	for _, token := range tokenize(trimmed) {
		vec[bucket(token, s.dimensions)] += tokenWeight
	}
	for _, gram := range ngrams(compact(trimmed), ngramSize) {
		vec[bucket(gram, s.dimensions)] += ngramWeight
	}
	if isZero(vec) {
		// Punctuation-only text still gets a stable direction.
		vec[bucket(trimmed, s.dimensions)] = 1
	}

	normalize(vec)
	return vec
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName identifies the hashing scheme.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds on an open embedder.
func (s *EmbeddingService) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the embedder closed.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		lower := strings.ToLower(word)
		if !stopWords[lower] {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// compact lowercases text and keeps only letters and digits.
func compact(text string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func ngrams(text string, n int) []string {
	runes := []rune(text)
	if len(runes) < n {
		return nil
	}
	out := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		out = append(out, string(runes[i:i+n]))
	}
	return out
}

func bucket(s string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dims))
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func normalize(v []float32) {
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
