package notion

import (
	"strconv"
	"strings"
)

// blockWalker renders a Notion block tree.
type blockWalker struct {
	w        *writer
	maxDepth int
}

// childBlocks returns the inlined children of a block or page. Both the
// "children" and "blocks" keys are accepted, as is a nested list object.
func childBlocks(obj map[string]any) []any {
	for _, key := range []string{"children", "blocks"} {
		switch v := obj[key].(type) {
		case []any:
			return v
		case map[string]any:
			return asSlice(v["results"])
		}
	}
	if kind := asString(obj["type"]); kind != "" {
		if inner := asMap(obj[kind]); inner != nil {
			if children := asSlice(inner["children"]); children != nil {
				return children
			}
		}
	}
	return nil
}

// walkTop renders top-level blocks, each in its own section.
func (b *blockWalker) walkTop(blocks []any, depth int) {
	b.walk(blocks, depth, true)
}

func (b *blockWalker) walk(blocks []any, depth int, sectioned bool) {
	if len(blocks) == 0 {
		return
	}
	if depth > b.maxDepth {
		b.w.raw(depth, "", DepthLimitMarker)
		return
	}

	number := 0
	for _, item := range blocks {
		block := asMap(item)
		if block == nil {
			continue
		}
		if sectioned {
			b.w.section()
		}

		kind := asString(block["type"])
		if kind == "numbered_list_item" {
			number++
		} else {
			number = 0
		}

		childDepth := depth + 1
		if b.render(block, kind, depth, number) {
			// Layout containers add no line and no indentation.
			childDepth = depth
		}
		b.walk(childBlocks(block), childDepth, false)
	}
}

// render emits the line for one block. It reports whether the block is a
// pure layout container.
func (b *blockWalker) render(block map[string]any, kind string, depth, number int) bool {
	id := asString(block["id"])
	data := asMap(block[kind])
	text := richText(data["rich_text"])

	switch kind {
	case "heading_1":
		b.w.heading(levelH1, depth, id, text)
	case "heading_2":
		b.w.heading(levelH2, depth, id, text)
	case "heading_3", "heading_4":
		b.w.heading(levelH3, depth, id, text)
	case "paragraph", "toggle", "template":
		b.w.line(depth, id, text)
	case "bulleted_list_item":
		b.w.line(depth, id, prefixed("- ", text))
	case "numbered_list_item":
		b.w.line(depth, id, prefixed(strconv.Itoa(number)+". ", text))
	case "to_do":
		mark := "[ ] "
		if checked, _ := data["checked"].(bool); checked {
			mark = "[x] "
		}
		b.w.line(depth, id, prefixed(mark, text))
	case "quote":
		b.w.line(depth, id, prefixed("> ", text))
	case "callout":
		icon := str(data, "icon", "emoji")
		if icon != "" && text != "" {
			text = icon + " " + text
		}
		b.w.line(depth, id, text)
	case "code":
		if text != "" {
			lang := asString(data["language"])
			b.w.line(depth, id, "code "+lang+":")
			b.w.line(depth+1, id, text)
		}
	case "equation":
		b.w.line(depth, id, asString(data["expression"]))
	case "divider":
		b.w.raw(depth, id, "---")
	case "child_page":
		b.w.raw(depth, id, "Page: "+asString(data["title"]))
	case "child_database":
		b.w.raw(depth, id, "Database: "+asString(data["title"]))
	case "bookmark", "embed", "link_preview", "image", "video", "file", "pdf", "audio":
		b.w.line(depth, id, media(kind, data))
	case "table_row":
		b.w.line(depth, id, tableRow(data))
	case "link_to_page":
		target := str(data, "page_id")
		if target == "" {
			target = str(data, "database_id")
		}
		b.w.raw(depth, id, prefixed("Link: ", target))
	case "column_list", "column", "synced_block", "table":
		return true
	}
	return false
}

func prefixed(prefix, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return prefix + text
}

// media renders a file-like block as its caption and URL.
func media(kind string, data map[string]any) string {
	url := asString(data["url"])
	if url == "" {
		url = str(data, "external", "url")
	}
	if url == "" {
		url = str(data, "file", "url")
	}
	caption := collapse(richText(data["caption"]))
	if name := asString(data["name"]); caption == "" && name != "" {
		caption = name
	}

	switch {
	case caption != "" && url != "":
		return kind + ": " + caption + " (" + url + ")"
	case caption != "":
		return kind + ": " + caption
	case url != "":
		return kind + ": " + url
	default:
		return ""
	}
}

func tableRow(data map[string]any) string {
	cells := asSlice(data["cells"])
	if len(cells) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cells))
	empty := true
	for _, cell := range cells {
		text := collapse(richText(cell))
		if text != "" {
			empty = false
		}
		parts = append(parts, text)
	}
	if empty {
		return ""
	}
	return strings.Join(parts, " | ")
}
