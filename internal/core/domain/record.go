package domain

import (
	"strconv"
	"strings"
	"time"
)

// Metadata keys carried on every vector record.
// Values are always strings; missing values are empty strings so that
// equality filters never hit an absent field.
const (
	MetaTeamID         = "teamId"
	MetaSourceType     = "sourceType"
	MetaAPIPath        = "apiPath"
	MetaSourceKey      = "sourceKey"
	MetaResourceID     = "resourceId"
	MetaTitle          = "title"
	MetaPageID         = "pageId"
	MetaParentID       = "parentId"
	MetaDatabaseID     = "databaseId"
	MetaLastEditedTime = "lastEditedTime"
	MetaPosition       = "position"
	MetaChunkCount     = "chunkCount"
	MetaDepth          = "depth"
	MetaUpdatedAt      = "updatedAt"
)

// MetadataKeys lists every key set on a vector record.
func MetadataKeys() []string {
	return []string{
		MetaTeamID, MetaSourceType, MetaAPIPath, MetaSourceKey, MetaResourceID,
		MetaTitle, MetaPageID, MetaParentID, MetaDatabaseID, MetaLastEditedTime,
		MetaPosition, MetaChunkCount, MetaDepth, MetaUpdatedAt,
	}
}

// VectorRecord is one chunk as stored in the search index.
type VectorRecord struct {
	// ID is DocumentPrefix + "-" + position.
	ID string

	// Text is the chunk content.
	Text string

	// Metadata holds denormalised fields for filtered search.
	Metadata map[string]string
}

// ScoredRecord is a similarity search hit.
type ScoredRecord struct {
	Record VectorRecord

	// Score is the similarity (higher is closer).
	Score float64
}

// ChunkID builds the record ID for one chunk position.
func ChunkID(prefix string, position int) string {
	return prefix + "-" + strconv.Itoa(position)
}

// ChunkIDRange returns the record IDs for positions [from, to).
func ChunkIDRange(prefix string, from, to int) []string {
	if to <= from {
		return nil
	}
	ids := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		ids = append(ids, ChunkID(prefix, i))
	}
	return ids
}

// ParseChunkID splits a record ID into its document prefix and position.
func ParseChunkID(id string) (prefix string, position int, ok bool) {
	idx := strings.LastIndexByte(id, '-')
	if idx <= 0 {
		return "", 0, false
	}
	pos, err := strconv.Atoi(id[idx+1:])
	if err != nil || pos < 0 {
		return "", 0, false
	}
	return id[:idx], pos, true
}

// QueryOptions describes a filtered similarity search.
type QueryOptions struct {
	// Text is the natural-language query. Blank text yields no results.
	Text string

	// TopK is the number of hits to return. Zero uses the configured default.
	TopK int

	// TeamID restricts to one team. Zero means unrestricted.
	TeamID int64

	// SourceType restricts to one source type.
	SourceType SourceType

	// APIPath restricts to one API operation.
	APIPath string

	// ParentID restricts to chunks whose parent is this page, database or block.
	ParentID string

	// PageID restricts to chunks of one page.
	PageID string

	// LastEditedAfter keeps only content edited at or after this time.
	LastEditedAfter time.Time
}

// DocumentInfo carries best-effort descriptive fields extracted from a payload.
// Every field may be empty.
type DocumentInfo struct {
	Title          string
	PageID         string
	ParentID       string
	DatabaseID     string
	LastEditedTime string
}

// EmbeddedRecord is a vector record together with its embedding, as persisted
// by index adapters that keep their own copy of the records.
type EmbeddedRecord struct {
	Record    VectorRecord
	Embedding []float32
}
