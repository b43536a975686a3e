package notion

import (
	"sort"
	"strings"
)

// EmptyValue renders a missing or null property value.
const EmptyValue = "(empty)"

// sortedKeys returns map keys in a stable order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeProperties emits one line per page property except the title.
func writeProperties(w *writer, depth int, props map[string]any, maxDepth int) {
	for _, name := range sortedKeys(props) {
		prop := asMap(props[name])
		if prop == nil || asString(prop["type"]) == "title" {
			continue
		}
		w.raw(depth, asString(prop["id"]), name+": "+propertyValue(prop, depth, maxDepth))
	}
}

// propertyValue renders one page property value as a single line.
func propertyValue(prop map[string]any, depth, maxDepth int) string {
	if depth > maxDepth {
		return DepthLimitMarker
	}

	kind := asString(prop["type"])
	val := prop[kind]

	var out string
	switch kind {
	case "title", "rich_text":
		out = richText(val)
	case "number", "url", "email", "phone_number", "created_time", "last_edited_time":
		out = asString(val)
	case "checkbox":
		if b, ok := val.(bool); ok {
			if b {
				out = "yes"
			} else {
				out = "no"
			}
		}
	case "select", "status":
		out = asString(asMap(val)["name"])
	case "multi_select":
		out = joinNames(val, func(v any) string { return asString(asMap(v)["name"]) })
	case "date":
		out = dateValue(val)
	case "people":
		out = joinNames(val, userName)
	case "created_by", "last_edited_by":
		out = userName(val)
	case "relation":
		out = joinNames(val, func(v any) string { return asString(asMap(v)["id"]) })
	case "files":
		out = joinNames(val, fileName)
	case "formula":
		out = formulaValue(asMap(val))
	case "rollup":
		out = rollupValue(asMap(val), depth, maxDepth)
	case "unique_id":
		out = uniqueID(asMap(val))
	case "verification":
		out = asString(asMap(val)["state"])
	case "":
		out = ""
	default:
		out = "(" + kind + ")"
	}

	out = collapse(out)
	if out == "" {
		return EmptyValue
	}
	return out
}

func joinNames(v any, name func(any) string) string {
	var parts []string
	for _, item := range asSlice(v) {
		if n := strings.TrimSpace(name(item)); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, ", ")
}

func dateValue(v any) string {
	m := asMap(v)
	start := asString(m["start"])
	if start == "" {
		return ""
	}
	if end := asString(m["end"]); end != "" {
		return start + " to " + end
	}
	return start
}

func fileName(v any) string {
	m := asMap(v)
	if name := asString(m["name"]); name != "" {
		return name
	}
	if url := str(m, "external", "url"); url != "" {
		return url
	}
	return str(m, "file", "url")
}

func formulaValue(m map[string]any) string {
	kind := asString(m["type"])
	if kind == "date" {
		return dateValue(m["date"])
	}
	return asString(m[kind])
}

func rollupValue(m map[string]any, depth, maxDepth int) string {
	kind := asString(m["type"])
	switch kind {
	case "array":
		var parts []string
		for _, item := range asSlice(m["array"]) {
			v := propertyValue(asMap(item), depth+1, maxDepth)
			if v != EmptyValue {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, ", ")
	case "date":
		return dateValue(m["date"])
	default:
		return asString(m[kind])
	}
}

func uniqueID(m map[string]any) string {
	number := asString(m["number"])
	if number == "" {
		return ""
	}
	if prefix := asString(m["prefix"]); prefix != "" {
		return prefix + "-" + number
	}
	return number
}

// schemaLine renders one database property definition.
func schemaLine(name string, prop map[string]any) string {
	kind := asString(prop["type"])
	line := name + " (" + kind + ")"

	var options []string
	switch kind {
	case "select", "multi_select", "status":
		for _, opt := range asSlice(asMap(prop[kind])["options"]) {
			if n := asString(asMap(opt)["name"]); n != "" {
				options = append(options, n)
			}
		}
	case "relation":
		if db := str(prop, "relation", "database_id"); db != "" {
			options = append(options, "database "+db)
		}
	case "formula":
		if expr := str(prop, "formula", "expression"); expr != "" {
			options = append(options, expr)
		}
	}
	if len(options) > 0 {
		line += ": " + strings.Join(options, ", ")
	}
	return line
}
