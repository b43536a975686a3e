package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// VectorStore is the search index holding chunk records.
//
// Filter expressions are a boolean AND of clauses of the form
// field == 'literal' or field >= 'literal'. Embedded quotes in literals are doubled.
type VectorStore interface {
	// Add inserts records, replacing any record with the same ID.
	Add(ctx context.Context, records []domain.VectorRecord) error

	// Delete removes records by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// SimilaritySearch returns up to topK records most similar to query
	// that satisfy the filter expression. An empty filter matches everything.
	SimilaritySearch(ctx context.Context, query string, topK int, filter string) ([]domain.ScoredRecord, error)

	// Exists reports which of the given IDs are present.
	Exists(ctx context.Context, ids []string) (map[string]bool, error)

	// ListIDs returns every stored record ID.
	ListIDs(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}
