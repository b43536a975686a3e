package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// Vector store adapters that index raw text use it for both chunks and queries.
//
// Implementations include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - A static hashing embedder for offline use and tests
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
