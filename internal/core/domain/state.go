package domain

import "time"

// IndexingState records the last successfully indexed content for one source key.
// It is unique on SourceKey.
type IndexingState struct {
	// SourceKey is the stable identity of the logical document.
	SourceKey string

	// SourceType, TeamID, APIPath and ResourceID are the parts of SourceKey.
	SourceType SourceType
	TeamID     int64
	APIPath    string
	ResourceID string

	// DocumentPrefix namespaces the chunk IDs of this document.
	DocumentPrefix string

	// ContentHash is the SHA-256 of the normalised text behind the stored chunks.
	ContentHash string

	// ChunkCount is the number of chunk records under DocumentPrefix.
	ChunkCount int

	// UpdatedAt is when the row was last written.
	UpdatedAt time.Time
}

// ChunkIDs returns the vector record IDs owned by this state.
func (s *IndexingState) ChunkIDs() []string {
	return ChunkIDRange(s.DocumentPrefix, 0, s.ChunkCount)
}
