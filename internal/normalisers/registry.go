package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry resolves normalisers by source type.
type Registry struct {
	mu          sync.RWMutex
	normalisers map[domain.SourceType]driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{normalisers: make(map[domain.SourceType]driven.Normaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser, replacing any previous one for its source type.
func (r *Registry) Register(normaliser driven.Normaliser) {
	if normaliser == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers[normaliser.SourceType()] = normaliser
}

// Normalise runs the normaliser registered for the job's source type.
func (r *Registry) Normalise(ctx context.Context, job *domain.IndexJob) (*driven.NormaliseResult, error) {
	if job == nil {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	n, ok := r.normalisers[job.SourceType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNormaliserNotFound, job.SourceType)
	}
	return n.Normalise(ctx, job)
}

// SourceTypes returns the registered source types in sorted order.
func (r *Registry) SourceTypes() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.SourceType, 0, len(r.normalisers))
	for t := range r.normalisers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
