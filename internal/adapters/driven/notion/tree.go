package notion

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// maxRowsPerDatabase bounds the rows gathered into one database query job.
const maxRowsPerDatabase = 1000

// reader wraps an API with the multi-request reads that assemble job payloads.
type reader struct {
	api      API
	maxDepth int
}

func newReader(api API, maxDepth int) *reader {
	if maxDepth <= 0 || maxDepth > domain.MaxDepthLimit {
		maxDepth = domain.MaxDepthLimit
	}
	return &reader{api: api, maxDepth: maxDepth}
}

// page retrieves a page and inlines its block tree under "children".
func (r *reader) page(ctx context.Context, pageID string) (map[string]any, error) {
	page, err := r.api.RetrievePage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return r.withChildren(ctx, page)
}

// withChildren inlines the block tree of an already-read page.
func (r *reader) withChildren(ctx context.Context, page map[string]any) (map[string]any, error) {
	id, _ := page["id"].(string)
	if id == "" {
		return page, nil
	}
	children, err := r.children(ctx, id, 1)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		page["children"] = children
	}
	return page, nil
}

// children lists a block's children, descending into nested blocks until
// maxDepth. Blocks below the bound keep has_children so the normaliser can
// mark the cut.
func (r *reader) children(ctx context.Context, blockID string, depth int) ([]any, error) {
	var out []any
	cursor := ""
	for {
		resp, err := r.api.BlockChildren(ctx, blockID, cursor)
		if err != nil {
			return nil, err
		}
		for _, block := range resp.Results {
			if hasChildren, _ := block["has_children"].(bool); hasChildren && depth < r.maxDepth {
				if id, _ := block["id"].(string); id != "" && !isChildContainer(block) {
					nested, err := r.children(ctx, id, depth+1)
					if err != nil {
						return nil, err
					}
					block["children"] = nested
				}
			}
			out = append(out, block)
		}
		if !resp.HasMore {
			return out, nil
		}
		cursor = resp.NextCursor
	}
}

// isChildContainer reports blocks whose children are separate resources.
func isChildContainer(block map[string]any) bool {
	switch block["type"] {
	case "child_page", "child_database":
		return true
	}
	return false
}

// rows collects database rows into one query-result payload.
func (r *reader) rows(ctx context.Context, databaseID string) (map[string]any, error) {
	var rows []any
	cursor := ""
	for {
		resp, err := r.api.QueryDatabase(ctx, databaseID, cursor)
		if err != nil {
			return nil, err
		}
		for _, row := range resp.Results {
			rows = append(rows, row)
		}
		if len(rows) >= maxRowsPerDatabase {
			rows = rows[:maxRowsPerDatabase]
			break
		}
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return map[string]any{
		"object":  "list",
		"results": rows,
	}, nil
}

// objectID returns the id of a wire-form object.
func objectID(obj map[string]any) (string, error) {
	id, _ := obj["id"].(string)
	if id == "" {
		return "", fmt.Errorf("%w: object without id", domain.ErrInvalidInput)
	}
	return id, nil
}
