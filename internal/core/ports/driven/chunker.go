package driven

import "context"

// Chunker splits normalised text into an ordered sequence of chunks.
// Identical input must always produce an identical sequence.
type Chunker interface {
	// Process splits text. Blank text yields no chunks.
	Process(ctx context.Context, text string) ([]string, error)
}
