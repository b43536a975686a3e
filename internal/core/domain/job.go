package domain

import (
	"fmt"
	"strings"
)

// SourceType identifies which kind of Notion API response a job carries.
// Each source type has exactly one normaliser.
type SourceType string

// Supported source types.
const (
	// SourceNotionPage is a single page, optionally with its block tree inlined.
	SourceNotionPage SourceType = "notion_page"

	// SourceNotionDatabase is a database object with its property schema.
	SourceNotionDatabase SourceType = "notion_database"

	// SourceNotionDatabaseQuery is a page of rows returned by a database query.
	SourceNotionDatabaseQuery SourceType = "notion_database_query"

	// SourceNotionBlockChildren is a list of child blocks of a page or block.
	SourceNotionBlockChildren SourceType = "notion_block_children"

	// SourceNotionSearch is a workspace search result listing.
	SourceNotionSearch SourceType = "notion_search"
)

// AllSourceTypes returns every supported source type in a stable order.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceNotionPage,
		SourceNotionDatabase,
		SourceNotionDatabaseQuery,
		SourceNotionBlockChildren,
		SourceNotionSearch,
	}
}

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	for _, known := range AllSourceTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// DefaultAPIPath returns the logical API operation that produces this source type.
func (t SourceType) DefaultAPIPath() string {
	switch t {
	case SourceNotionPage:
		return "pages.retrieve"
	case SourceNotionDatabase:
		return "databases.retrieve"
	case SourceNotionDatabaseQuery:
		return "databases.query"
	case SourceNotionBlockChildren:
		return "blocks.children.list"
	case SourceNotionSearch:
		return "search"
	default:
		return ""
	}
}

// ParseSourceType converts a string into a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: source type %q", ErrUnsupportedType, s)
	}
	return t, nil
}

// IndexJob is one indexing trigger. It is created once per trigger and
// discarded after the pipeline has run.
type IndexJob struct {
	// TraceID correlates log lines for one job. Assigned by the dispatcher.
	TraceID string

	// SourceType selects the normaliser.
	SourceType SourceType

	// TeamID is the owning team (tenant).
	TeamID int64

	// APIPath is the logical operation that produced the payload.
	APIPath string

	// ResourceID is the Notion object ID, when the payload concerns one resource.
	ResourceID string

	// Payload is the decoded JSON response tree.
	Payload map[string]any
}

// HasResource returns true if the job is scoped to a single resource.
func (j *IndexJob) HasResource() bool {
	return strings.TrimSpace(j.ResourceID) != ""
}

// Validate checks the fields required to derive a source key.
func (j *IndexJob) Validate() error {
	if !j.SourceType.IsValid() {
		return fmt.Errorf("%w: source type %q", ErrUnsupportedType, j.SourceType)
	}
	if j.APIPath == "" {
		return fmt.Errorf("%w: api path is required", ErrInvalidInput)
	}
	return nil
}

// DeleteJob asks for every indexed chunk of one upstream resource to be removed.
type DeleteJob struct {
	// SourceType restricts deletion to one source type. Empty matches all.
	SourceType SourceType

	// TeamID is the owning team.
	TeamID int64

	// ResourceID is the deleted Notion object ID.
	ResourceID string
}
