// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The indexing path is IndexingService (normalise, chunk, upsert) behind the
// JobDispatcher worker pool. VectorStoreGateway owns every write to the
// vector store and the indexing state store; RepairService reconciles the
// two when a write was interrupted part way.
//
// Services are pure Go with no CGO.
package services
