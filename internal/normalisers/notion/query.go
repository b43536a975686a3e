package notion

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure DatabaseQueryNormaliser implements the interface.
var _ driven.Normaliser = (*DatabaseQueryNormaliser)(nil)

// DatabaseQueryNormaliser handles databases.query responses: a list of
// rows, each a page with properties.
type DatabaseQueryNormaliser struct {
	settings
}

// NewDatabaseQuery creates a database query normaliser.
func NewDatabaseQuery(opts ...Option) *DatabaseQueryNormaliser {
	return &DatabaseQueryNormaliser{settings: newSettings(opts)}
}

// SourceType returns the source type this normaliser handles.
func (n *DatabaseQueryNormaliser) SourceType() domain.SourceType {
	return domain.SourceNotionDatabaseQuery
}

// Normalise renders one section per row.
func (n *DatabaseQueryNormaliser) Normalise(ctx context.Context, job *domain.IndexJob) (*driven.NormaliseResult, error) {
	return run(ctx, job, n.render)
}

func (n *DatabaseQueryNormaliser) render(payload map[string]any, _ *domain.IndexJob) (*writer, domain.DocumentInfo) {
	var info domain.DocumentInfo
	w := n.writer()
	walker := n.walker(w)

	for _, item := range asSlice(payload["results"]) {
		row := asMap(item)
		if row == nil {
			continue
		}
		id := asString(row["id"])

		if info.DatabaseID == "" {
			info.ParentID, info.DatabaseID = parentInfo(row)
		}
		info.LastEditedTime = latest(info.LastEditedTime, asString(row["last_edited_time"]))

		w.section()
		w.resetHeadings()

		title := pageTitle(row)
		if title == "" {
			title = "Untitled"
		}
		w.heading(levelTitle, 0, id, title)
		writeProperties(w, 1, asMap(row["properties"]), n.maxDepth)
		walker.walk(childBlocks(row), 1, false)
	}

	return w, info
}
