package notion

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure SearchNormaliser implements the interface.
var _ driven.Normaliser = (*SearchNormaliser)(nil)

// SearchNormaliser handles search responses listing pages and databases.
type SearchNormaliser struct {
	settings
}

// NewSearch creates a search normaliser.
func NewSearch(opts ...Option) *SearchNormaliser {
	return &SearchNormaliser{settings: newSettings(opts)}
}

// SourceType returns the source type this normaliser handles.
func (n *SearchNormaliser) SourceType() domain.SourceType {
	return domain.SourceNotionSearch
}

// Normalise renders one section per search result.
func (n *SearchNormaliser) Normalise(ctx context.Context, job *domain.IndexJob) (*driven.NormaliseResult, error) {
	return run(ctx, job, n.render)
}

func (n *SearchNormaliser) render(payload map[string]any, _ *domain.IndexJob) (*writer, domain.DocumentInfo) {
	var info domain.DocumentInfo
	w := n.writer()

	for _, item := range asSlice(payload["results"]) {
		obj := asMap(item)
		if obj == nil {
			continue
		}
		id := asString(obj["id"])
		kind := asString(obj["object"])
		if kind == "" {
			kind = "page"
		}
		info.LastEditedTime = latest(info.LastEditedTime, asString(obj["last_edited_time"]))

		w.section()
		w.resetHeadings()

		title := objectTitle(obj)
		if title == "" {
			title = "Untitled"
		}
		w.raw(0, id, kind+": "+title)
		w.raw(1, id, prefixed("url: ", asString(obj["url"])))

		if kind == "page" {
			writeProperties(w, 1, asMap(obj["properties"]), n.maxDepth)
		}
	}

	return w, info
}
