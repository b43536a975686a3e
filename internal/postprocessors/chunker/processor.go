// Package chunker splits normalised text into overlapping, size-bounded chunks.
//
// Chunk boundaries are deterministic: the same text, size and overlap always
// produce the same sequence, because chunk positions become part of record IDs.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// MinChunkSize is the floor applied to any requested chunk size.
const MinChunkSize = domain.MinChunkSize

// BoundaryWindow is how far back from the hard cutoff a boundary is searched for.
const BoundaryWindow = 120

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text into chunks with a fixed configuration.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.chunkSize, p.overlap = clamp(p.chunkSize, p.overlap)
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the effective chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the effective overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits text using the processor's configuration.
func (p *Processor) Process(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return split(text, p.chunkSize, p.overlap)
}

// Chunk splits text into chunks of roughly size characters overlapping by
// overlap characters. Size is floored at MinChunkSize; overlap is clamped
// into [0, size). Blank text yields no chunks.
func Chunk(text string, size, overlap int) []string {
	size, overlap = clamp(size, overlap)
	chunks, err := split(text, size, overlap)
	if err != nil {
		return nil
	}
	return chunks
}

// clamp enforces the size floor and overlap range.
func clamp(size, overlap int) (int, int) {
	if size < MinChunkSize {
		size = MinChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	// Ensure overlap doesn't reach chunk size
	if overlap >= size {
		overlap = size / 4
	}
	return size, overlap
}

// split runs the sliding window over the runes of text.
func split(text string, size, overlap int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)

	estimated := n/(size-overlap) + 1
	chunks := make([]string, 0, estimated)

	start := 0
	for iterations := 0; ; iterations++ {
		if iterations > n {
			return nil, fmt.Errorf("%w: no progress at offset %d", domain.ErrChunkFailure, start)
		}

		end := start + size
		if end > n {
			end = n
		}
		if end < n {
			end = boundaryBefore(runes, start, end)
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}

		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// boundaryBefore searches backwards from end, at most BoundaryWindow runes,
// for a boundary character. The returned end includes the boundary rune.
// Falls back to end when none is found.
func boundaryBefore(runes []rune, start, end int) int {
	limit := end - BoundaryWindow
	if limit < start {
		limit = start
	}
	for i := end - 1; i >= limit; i-- {
		if isBoundary(runes[i]) && i+1 > start {
			return i + 1
		}
	}
	return end
}

// isBoundary reports whether r is a good place to end a chunk.
func isBoundary(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', '!', '?', ';', ':', ',', ')', ']', '}',
		'。', '！', '？', '；', '，', '、', '…':
		return true
	}
	return false
}
