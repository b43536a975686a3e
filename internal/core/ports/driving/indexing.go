package driving

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// Indexer runs the normalise, chunk and upsert pipeline for one job synchronously.
type Indexer interface {
	// Index processes one job and reports what changed.
	Index(ctx context.Context, job domain.IndexJob) (*IndexResult, error)

	// Delete removes every indexed chunk of one upstream resource.
	// Returns the number of states removed.
	Delete(ctx context.Context, job domain.DeleteJob) (int, error)
}

// IndexOutcome describes what an upsert did.
type IndexOutcome string

// Possible outcomes.
const (
	// OutcomeEmpty means the payload normalised to blank text; nothing was touched.
	OutcomeEmpty IndexOutcome = "empty"

	// OutcomeUnchanged means the content hash matched; nothing was touched.
	OutcomeUnchanged IndexOutcome = "unchanged"

	// OutcomeIndexed means records were written and state refreshed.
	OutcomeIndexed IndexOutcome = "indexed"
)

// IndexResult summarises one upsert.
type IndexResult struct {
	SourceKey      string
	DocumentPrefix string
	ContentHash    string
	Outcome        IndexOutcome
	ChunkCount     int
	Added          int
	Deleted        int
}

// ContextSearch serves filtered similarity queries over indexed chunks.
type ContextSearch interface {
	// Query returns ranked chunks. Blank query text returns no results and no error.
	Query(ctx context.Context, opts domain.QueryOptions) ([]domain.ScoredRecord, error)

	// States lists indexing states, or one team's when teamID is non-zero.
	States(ctx context.Context, teamID int64) ([]domain.IndexingState, error)
}

// Repairer reconciles the search index with the indexing state store.
type Repairer interface {
	// Sweep verifies every state and repairs disagreements.
	Sweep(ctx context.Context) (*RepairReport, error)
}

// RepairReport summarises one repair sweep.
type RepairReport struct {
	// Checked is the number of states verified.
	Checked int

	// StatesReset is the number of states removed because chunks were missing.
	StatesReset int

	// OrphansRemoved is the number of records deleted because no state owns them.
	OrphansRemoved int

	// Errors is the number of states that could not be verified.
	Errors int
}

// WorkspaceLoader performs the initial bulk load of Notion workspaces.
type WorkspaceLoader interface {
	// LoadTeam enumerates one team's workspace and submits a job per resource.
	// Returns the number of jobs accepted by the dispatcher.
	LoadTeam(ctx context.Context, teamID int64) (int, error)

	// LoadAll loads every configured team.
	LoadAll(ctx context.Context) (int, error)
}
