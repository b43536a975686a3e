package mcp

import (
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search serves filtered similarity queries and lists indexing state.
	Search driving.ContextSearch

	// Repair reconciles the index with its state. Optional.
	Repair driving.Repairer

	// Dispatcher reports queue counters. Optional.
	Dispatcher driving.Dispatcher
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
