package notion

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure BlockChildrenNormaliser implements the interface.
var _ driven.Normaliser = (*BlockChildrenNormaliser)(nil)

// BlockChildrenNormaliser handles blocks.children.list responses.
type BlockChildrenNormaliser struct {
	settings
}

// NewBlockChildren creates a block children normaliser.
func NewBlockChildren(opts ...Option) *BlockChildrenNormaliser {
	return &BlockChildrenNormaliser{settings: newSettings(opts)}
}

// SourceType returns the source type this normaliser handles.
func (n *BlockChildrenNormaliser) SourceType() domain.SourceType {
	return domain.SourceNotionBlockChildren
}

// Normalise renders the listed blocks and any children inlined beneath them.
func (n *BlockChildrenNormaliser) Normalise(ctx context.Context, job *domain.IndexJob) (*driven.NormaliseResult, error) {
	return run(ctx, job, n.render)
}

func (n *BlockChildrenNormaliser) render(payload map[string]any, job *domain.IndexJob) (*writer, domain.DocumentInfo) {
	blocks := asSlice(payload["results"])

	info := domain.DocumentInfo{ParentID: job.ResourceID}
	for _, item := range blocks {
		block := asMap(item)
		if block == nil {
			continue
		}
		if parentID, _ := parentInfo(block); parentID != "" && info.PageID == "" {
			info.ParentID = parentID
			if str(block, "parent", "type") == "page_id" {
				info.PageID = parentID
			}
		}
		info.LastEditedTime = latest(info.LastEditedTime, asString(block["last_edited_time"]))
	}

	w := n.writer()
	n.walker(w).walkTop(blocks, 0)
	return w, info
}
