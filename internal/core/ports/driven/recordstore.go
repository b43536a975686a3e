package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// VectorRecordStore persists embedded records for in-process vector indexes
// that rebuild their graph on startup.
type VectorRecordStore interface {
	// SaveRecords inserts or replaces records by ID.
	SaveRecords(ctx context.Context, records []domain.EmbeddedRecord) error

	// DeleteRecords removes records by ID. Unknown IDs are ignored.
	DeleteRecords(ctx context.Context, ids []string) error

	// LoadRecords returns every persisted record.
	LoadRecords(ctx context.Context) ([]domain.EmbeddedRecord, error)
}
