package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// Enumerator discovers every indexable resource of a workspace at initial
// connection time and emits one job per resource.
type Enumerator interface {
	// Enumerate streams jobs for the team's workspace.
	// Both channels are closed when enumeration finishes.
	Enumerate(ctx context.Context, teamID int64) (<-chan domain.IndexJob, <-chan error)
}
