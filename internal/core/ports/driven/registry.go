package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// NormaliserRegistry resolves the normaliser for a job's source type.
// It is populated once at startup.
type NormaliserRegistry interface {
	// Normalise transforms a job using the normaliser registered for its source type.
	// Returns domain.ErrNormaliserNotFound when none is registered.
	Normalise(ctx context.Context, job *domain.IndexJob) (*NormaliseResult, error)

	// Register adds a normaliser, replacing any previous one for the same source type.
	Register(normaliser Normaliser)

	// SourceTypes returns all source types with a registered normaliser.
	SourceTypes() []domain.SourceType
}
