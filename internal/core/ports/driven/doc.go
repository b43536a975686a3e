// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Normaliser / NormaliserRegistry: Payload to flat text, keyed by source type
//   - VectorStore: Chunk records and filtered similarity search
//   - IndexingStateStore: Last indexed content per source key
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - EmbeddingService: Used by vector store adapters that embed text themselves
//   - Enumerator: Bulk initial load of a workspace
//   - SchedulerStore: Persistence for periodic tasks
//   - VectorRecordStore: Write-through persistence for in-process indexes
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
