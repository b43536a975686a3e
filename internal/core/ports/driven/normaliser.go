package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// Normaliser flattens one source-specific payload into indexable text.
// There is exactly one normaliser per source type.
type Normaliser interface {
	// SourceType returns the source type this normaliser handles.
	SourceType() domain.SourceType

	// Normalise converts the job payload into flat text.
	// Blank or empty payloads produce empty text and no error.
	Normalise(ctx context.Context, job *domain.IndexJob) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	// Text is the normalised content, bounded by the configured maximum length.
	Text string

	// Info holds best-effort descriptive fields for record metadata.
	Info domain.DocumentInfo

	// Truncated reports whether trailing sections were dropped.
	Truncated bool
}
