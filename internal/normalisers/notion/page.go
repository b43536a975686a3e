package notion

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure PageNormaliser implements the interface.
var _ driven.Normaliser = (*PageNormaliser)(nil)

// PageNormaliser handles pages.retrieve responses, optionally with the
// page's block tree inlined under "children" or "blocks".
type PageNormaliser struct {
	settings
}

// NewPage creates a page normaliser.
func NewPage(opts ...Option) *PageNormaliser {
	return &PageNormaliser{settings: newSettings(opts)}
}

// SourceType returns the source type this normaliser handles.
func (n *PageNormaliser) SourceType() domain.SourceType {
	return domain.SourceNotionPage
}

// Normalise renders the title, the properties and the content of a page.
func (n *PageNormaliser) Normalise(ctx context.Context, job *domain.IndexJob) (*driven.NormaliseResult, error) {
	return run(ctx, job, n.render)
}

func (n *PageNormaliser) render(payload map[string]any, job *domain.IndexJob) (*writer, domain.DocumentInfo) {
	page := payload
	blocks := childBlocks(payload)
	if inner := asMap(payload["page"]); inner != nil {
		page = inner
		if len(blocks) == 0 {
			blocks = childBlocks(inner)
		}
	}

	id := asString(page["id"])
	if id == "" {
		id = job.ResourceID
	}
	parentID, databaseID := parentInfo(page)
	info := domain.DocumentInfo{
		Title:          pageTitle(page),
		PageID:         id,
		ParentID:       parentID,
		DatabaseID:     databaseID,
		LastEditedTime: asString(page["last_edited_time"]),
	}

	w := n.writer()

	w.section()
	w.heading(levelTitle, 0, id, info.Title)

	if props := asMap(page["properties"]); len(props) > 0 {
		w.section()
		writeProperties(w, 1, props, n.maxDepth)
	}

	n.walker(w).walkTop(blocks, 0)

	return w, info
}
