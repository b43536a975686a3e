// Package domain defines the core entities of the docsync indexing pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - IndexJob: One indexing trigger carrying a Notion API payload
//   - IndexingState: The last indexed content per source key
//   - VectorRecord: One chunk as stored in the search index
//   - QueryOptions: A filtered similarity search request
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
