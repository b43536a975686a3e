package notion

import (
	"strconv"
	"strings"
)

// Accessors over decoded JSON. Every one tolerates nil and wrong types.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// str returns the string at a nested key path.
func str(m map[string]any, path ...string) string {
	if len(path) == 0 {
		return ""
	}
	cur := m
	for _, key := range path[:len(path)-1] {
		cur = asMap(cur[key])
		if cur == nil {
			return ""
		}
	}
	return asString(cur[path[len(path)-1]])
}

// richText concatenates a Notion rich text array. Each element contributes
// plain_text, falling back to text.content, then an equation expression.
func richText(v any) string {
	var sb strings.Builder
	for _, item := range asSlice(v) {
		m := asMap(item)
		if m == nil {
			continue
		}
		switch {
		case asString(m["plain_text"]) != "":
			sb.WriteString(asString(m["plain_text"]))
		case str(m, "text", "content") != "":
			sb.WriteString(str(m, "text", "content"))
		case str(m, "equation", "expression") != "":
			sb.WriteString(str(m, "equation", "expression"))
		}
	}
	return sb.String()
}

// userName renders a Notion user object.
func userName(v any) string {
	m := asMap(v)
	if m == nil {
		return ""
	}
	if name := asString(m["name"]); name != "" {
		return name
	}
	if email := str(m, "person", "email"); email != "" {
		return email
	}
	return asString(m["id"])
}

// parentInfo returns the parent ID and, when the parent is a database, the
// database ID.
func parentInfo(obj map[string]any) (parentID, databaseID string) {
	parent := asMap(obj["parent"])
	if parent == nil {
		return "", ""
	}
	switch asString(parent["type"]) {
	case "database_id":
		id := asString(parent["database_id"])
		return id, id
	case "data_source_id":
		id := asString(parent["data_source_id"])
		return id, asString(parent["database_id"])
	case "page_id":
		return asString(parent["page_id"]), ""
	case "block_id":
		return asString(parent["block_id"]), ""
	case "workspace":
		return "workspace", ""
	}
	for _, key := range []string{"database_id", "page_id", "block_id"} {
		if id := asString(parent[key]); id != "" {
			if key == "database_id" {
				return id, id
			}
			return id, ""
		}
	}
	return "", ""
}

// pageTitle finds the value of the title-typed property of a page.
func pageTitle(page map[string]any) string {
	for _, raw := range asMap(page["properties"]) {
		prop := asMap(raw)
		if asString(prop["type"]) == "title" {
			return strings.TrimSpace(richText(prop["title"]))
		}
	}
	// Child page blocks and some list results carry the title directly.
	if title := asString(page["title"]); title != "" {
		return title
	}
	return strings.TrimSpace(richText(page["title"]))
}

// databaseTitle renders a database object's title.
func databaseTitle(db map[string]any) string {
	return strings.TrimSpace(richText(db["title"]))
}

// objectTitle dispatches on the object kind.
func objectTitle(obj map[string]any) string {
	if asString(obj["object"]) == "database" {
		return databaseTitle(obj)
	}
	return pageTitle(obj)
}
