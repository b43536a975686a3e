package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// IndexingStateStore persists one IndexingState per source key.
type IndexingStateStore interface {
	// Get retrieves the state for a source key.
	// Returns domain.ErrNotFound if there is none.
	Get(ctx context.Context, sourceKey string) (*domain.IndexingState, error)

	// Save creates or refreshes the state for its source key.
	Save(ctx context.Context, state domain.IndexingState) error

	// Delete removes the state for a source key. Missing keys are not an error.
	Delete(ctx context.Context, sourceKey string) error

	// FindByResource returns the states of one upstream resource.
	// An empty sourceType matches every source type.
	FindByResource(ctx context.Context, sourceType domain.SourceType, teamID int64, resourceID string) ([]domain.IndexingState, error)

	// FindByPrefix returns the state owning a document prefix.
	// Returns domain.ErrNotFound if there is none.
	FindByPrefix(ctx context.Context, prefix string) (*domain.IndexingState, error)

	// List returns all states, or only one team's when teamID is non-zero.
	List(ctx context.Context, teamID int64) ([]domain.IndexingState, error)
}
