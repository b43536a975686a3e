package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette.
const (
	colorAccent = "39"
	colorGray   = "245"
	colorGreen  = "42"
	colorYellow = "220"
	colorRed    = "196"
)

// styles holds the text styles used in command output.
type styles struct {
	Header  lipgloss.Style
	Label   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
}

func colorStyles() styles {
	return styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)).Faint(true),
	}
}

func plainStyles() styles {
	return styles{
		Header:  lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
	}
}

// stylesFor colours output only when it goes to a terminal.
func stylesFor(w io.Writer) styles {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return colorStyles()
	}
	return plainStyles()
}

// padRight pads s with spaces to width display cells.
func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
