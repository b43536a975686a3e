package domain

import "time"

// Pipeline limits and defaults.
const (
	// MinChunkSize is the floor applied to the configured chunk size.
	MinChunkSize = 200

	// DefaultChunkSize is the target number of characters per chunk.
	DefaultChunkSize = 1200

	// DefaultChunkOverlap is the number of characters shared by adjacent chunks.
	DefaultChunkOverlap = 200

	// DefaultMaxNormalizedLength bounds the normalised text of one job.
	DefaultMaxNormalizedLength = 200_000

	// MaxDepthLimit is the hard recursion ceiling for nested payloads.
	// Configuration may lower it, never raise it.
	MaxDepthLimit = 12

	// DefaultTopK is the number of search hits returned when unspecified.
	DefaultTopK = 5
)

// PipelineConfig holds the tunables of the indexing pipeline.
type PipelineConfig struct {
	// Enabled is the master switch. When false, triggers are ignored.
	Enabled bool

	// MaxNormalizedLength bounds normalised text; whole sections are dropped past it.
	MaxNormalizedLength int

	// ChunkSize is the target chunk size in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between adjacent chunks.
	ChunkOverlap int

	// MaxDepth bounds payload recursion. Capped at MaxDepthLimit.
	MaxDepth int

	// CoreWorkers is the number of always-running dispatcher workers.
	CoreWorkers int

	// MaxWorkers is the ceiling including burst workers.
	MaxWorkers int

	// QueueCapacity is the number of jobs buffered ahead of the workers.
	QueueCapacity int

	// BurstIdleTimeout is how long a burst worker waits for work before exiting.
	BurstIdleTimeout time.Duration

	// TopK is the default number of search hits.
	TopK int
}

// DefaultPipelineConfig returns sensible defaults for the pipeline.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Enabled:             true,
		MaxNormalizedLength: DefaultMaxNormalizedLength,
		ChunkSize:           DefaultChunkSize,
		ChunkOverlap:        DefaultChunkOverlap,
		MaxDepth:            MaxDepthLimit,
		CoreWorkers:         4,
		MaxWorkers:          8,
		QueueCapacity:       256,
		BurstIdleTimeout:    30 * time.Second,
		TopK:                DefaultTopK,
	}
}

// Normalize applies floors, ceilings and defaults in place and returns the result.
func (c PipelineConfig) Normalize() PipelineConfig {
	def := DefaultPipelineConfig()

	if c.MaxNormalizedLength <= 0 {
		c.MaxNormalizedLength = def.MaxNormalizedLength
	}
	if c.ChunkSize < MinChunkSize {
		c.ChunkSize = MinChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 4
	}
	if c.MaxDepth <= 0 || c.MaxDepth > MaxDepthLimit {
		c.MaxDepth = MaxDepthLimit
	}
	if c.CoreWorkers <= 0 {
		c.CoreWorkers = def.CoreWorkers
	}
	if c.MaxWorkers < c.CoreWorkers {
		c.MaxWorkers = c.CoreWorkers
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.BurstIdleTimeout <= 0 {
		c.BurstIdleTimeout = def.BurstIdleTimeout
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	return c
}

// EmbeddingProvider names an embedding backend.
type EmbeddingProvider string

// Embedding providers.
const (
	EmbeddingProviderStatic EmbeddingProvider = "static"
	EmbeddingProviderOllama EmbeddingProvider = "ollama"
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// EmbeddingSettings selects and configures the embedding backend.
type EmbeddingSettings struct {
	Provider   EmbeddingProvider
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
}

// IsConfigured reports whether a provider has been chosen.
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// RequiresAPIKey reports whether the provider needs credentials.
func (s *EmbeddingSettings) RequiresAPIKey() bool {
	return s != nil && s.Provider == EmbeddingProviderOpenAI
}
