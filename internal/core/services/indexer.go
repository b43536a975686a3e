package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// Ensure IndexingService implements the interface.
var _ driving.Indexer = (*IndexingService)(nil)

// IndexingService runs normalise, chunk and upsert for one job.
type IndexingService struct {
	registry driven.NormaliserRegistry
	chunker  driven.Chunker
	gateway  *VectorStoreGateway
}

// NewIndexingService creates an indexing service.
func NewIndexingService(
	registry driven.NormaliserRegistry,
	chunker driven.Chunker,
	gateway *VectorStoreGateway,
) *IndexingService {
	return &IndexingService{
		registry: registry,
		chunker:  chunker,
		gateway:  gateway,
	}
}

// Index processes one job synchronously.
func (s *IndexingService) Index(ctx context.Context, job domain.IndexJob) (*driving.IndexResult, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	normalised, err := s.registry.Normalise(ctx, &job)
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}

	chunks, err := s.chunker.Process(ctx, normalised.Text)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	return s.gateway.Upsert(ctx, &job, chunks, normalised.Text, normalised.Info)
}

// Delete removes every indexed document of one upstream resource.
func (s *IndexingService) Delete(ctx context.Context, job domain.DeleteJob) (int, error) {
	return s.gateway.DeleteByResource(ctx, job.SourceType, job.TeamID, job.ResourceID)
}
