package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Pipeline Errors.

	// ErrNormaliserNotFound indicates no normaliser is registered for a job's source type.
	// Fatal for that job only.
	ErrNormaliserNotFound = errors.New("normaliser not found")

	// ErrChunkFailure indicates a chunker invariant was violated.
	ErrChunkFailure = errors.New("chunk failure")

	// ErrIndexMutation indicates a vector store add or delete failed.
	ErrIndexMutation = errors.New("index mutation failed")

	// ErrStateSave indicates the indexing state could not be persisted
	// after (or before) the index was mutated.
	ErrStateSave = errors.New("state save failed")

	// Dispatcher Errors.

	// ErrPipelineDisabled indicates the pipeline is switched off in configuration.
	ErrPipelineDisabled = errors.New("indexing pipeline disabled")

	// ErrDispatcherClosed indicates the dispatcher no longer accepts jobs.
	ErrDispatcherClosed = errors.New("dispatcher closed")

	// ErrQueueFull indicates a job was dropped because every worker and queue slot was busy.
	ErrQueueFull = errors.New("job queue full")
)
