// Package embedding selects and constructs an EmbeddingService from settings.
package embedding

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docsync/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docsync/internal/adapters/driven/embedding/openai"
	staticembed "github.com/custodia-labs/docsync/internal/adapters/driven/embedding/static"
	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// knownDimensions maps common models to their native vector size.
var knownDimensions = map[string]int{
	"nomic-embed-text":       768,
	"all-minilm":             384,
	"mxbai-embed-large":      1024,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// New creates the embedding service selected by settings.
// Unconfigured settings fall back to the static embedder.
func New(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return staticembed.NewEmbeddingService(0), nil
	}

	switch settings.Provider {
	case domain.EmbeddingProviderStatic:
		return staticembed.NewEmbeddingService(settings.Dimensions), nil

	case domain.EmbeddingProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensionsFor(settings),
		}), nil

	case domain.EmbeddingProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q",
			domain.ErrInvalidInput, settings.Provider)
	}
}

// NewValidated creates the embedding service and checks it is reachable.
func NewValidated(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := New(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

func dimensionsFor(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return knownDimensions[settings.Model]
}
