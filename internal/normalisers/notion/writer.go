package notion

import (
	"strings"
)

// TruncationMarker is appended when trailing sections are dropped.
const TruncationMarker = "\n[... truncated ...]"

// DepthLimitMarker replaces a subtree nested beyond the depth bound.
const DepthLimitMarker = "[depth limit reached]"

// Heading priorities. Lower values outrank higher ones.
const (
	levelTitle = iota
	levelH1
	levelH2
	levelH3
	levelCount
)

// writer accumulates normalised lines under a length bound.
//
// Output is grouped into sections. When a line would push the buffer past
// the bound, the buffer rolls back to the start of the current section, the
// truncation marker is appended and every later write is ignored.
type writer struct {
	buf          strings.Builder
	limit        int
	sectionStart int
	truncated    bool

	// headings holds the active heading per priority level.
	headings [levelCount]string
}

func newWriter(maxLength int) *writer {
	limit := maxLength - len(TruncationMarker)
	if limit < 0 {
		limit = 0
	}
	return &writer{limit: limit}
}

// section marks the start of a new named section.
func (w *writer) section() {
	if w.truncated {
		return
	}
	w.sectionStart = w.buf.Len()
}

// resetHeadings clears the heading context, including the title.
func (w *writer) resetHeadings() {
	w.headings = [levelCount]string{}
}

// heading emits a heading line and makes it the active context. Headings of
// the same or lower priority are replaced.
func (w *writer) heading(level, depth int, blockID, text string) {
	text = collapse(text)
	if text == "" {
		return
	}
	w.emit(depth, blockID, headingMark(level)+text)
	if w.truncated {
		return
	}
	for i := level; i < levelCount; i++ {
		w.headings[i] = ""
	}
	w.headings[level] = text
}

// line emits text prefixed by the active heading. Multi-line text becomes one
// line per non-blank row under the same block ID.
func (w *writer) line(depth int, blockID, text string) {
	for _, row := range strings.Split(text, "\n") {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		if h := w.activeHeading(); h != "" {
			row = h + " > " + row
		}
		w.emit(depth, blockID, row)
	}
}

// raw emits text without heading context.
func (w *writer) raw(depth int, blockID, text string) {
	text = collapse(text)
	if text == "" {
		return
	}
	w.emit(depth, blockID, text)
}

func (w *writer) emit(depth int, blockID, text string) {
	if w.truncated {
		return
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", depth))
	if blockID != "" {
		sb.WriteString("[")
		sb.WriteString(blockID)
		sb.WriteString("] ")
	}
	sb.WriteString(text)
	sb.WriteString("\n")

	if w.buf.Len()+sb.Len() > w.limit {
		w.truncate()
		return
	}
	w.buf.WriteString(sb.String())
}

func (w *writer) truncate() {
	kept := w.buf.String()[:w.sectionStart]
	w.buf.Reset()
	w.buf.WriteString(kept)
	w.truncated = true
}

func (w *writer) activeHeading() string {
	for i := levelCount - 1; i >= 0; i-- {
		if w.headings[i] != "" {
			return w.headings[i]
		}
	}
	return ""
}

// String returns the normalised text. Blank output is the empty string.
func (w *writer) String() string {
	out := strings.TrimRight(w.buf.String(), "\n")
	if w.truncated {
		return out + TruncationMarker
	}
	if strings.TrimSpace(out) == "" {
		return ""
	}
	return out
}

func headingMark(level int) string {
	switch level {
	case levelH1:
		return "# "
	case levelH2:
		return "## "
	case levelH3:
		return "### "
	default:
		return ""
	}
}

// collapse folds whitespace runs, including newlines, into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
