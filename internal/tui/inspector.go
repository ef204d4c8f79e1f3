package tui

import (
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"

	"github.com/civicwatch/herald/internal/badge"
)

// Inspector displays the raw engagement summary as syntax-highlighted
// JSON, for poking at what the backend actually returned.
type Inspector struct {
	lines  []string
	offset int
	width  int
	height int
	err    string
	loaded bool
}

// NewInspector creates a new inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// SetSize sets the viewport dimensions.
func (v *Inspector) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// SetSummary rebuilds the highlighted document from a fresh summary.
func (v *Inspector) SetSummary(s *badge.Summary) {
	v.loaded = true
	v.err = ""
	v.offset = 0

	src, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		v.err = err.Error()
		v.lines = nil
		return
	}

	var buf strings.Builder
	if err := quick.Highlight(&buf, string(src), "json", "terminal256", "monokai"); err != nil {
		// Plain output still beats no output.
		v.lines = strings.Split(string(src), "\n")
		return
	}
	v.lines = strings.Split(buf.String(), "\n")
}

// SetError records a summary fetch failure.
func (v *Inspector) SetError(msg string) {
	v.loaded = true
	v.err = msg
	v.lines = nil
}

// ScrollUp scrolls up one line.
func (v *Inspector) ScrollUp() {
	if v.offset > 0 {
		v.offset--
	}
}

// ScrollDown scrolls down one line.
func (v *Inspector) ScrollDown() {
	if v.offset < v.maxOffset() {
		v.offset++
	}
}

// PageUp scrolls up half a page.
func (v *Inspector) PageUp() {
	v.offset -= v.height / 2
	if v.offset < 0 {
		v.offset = 0
	}
}

// PageDown scrolls down half a page.
func (v *Inspector) PageDown() {
	v.offset += v.height / 2
	maxOffset := v.maxOffset()
	if v.offset > maxOffset {
		v.offset = maxOffset
	}
}

func (v *Inspector) maxOffset() int {
	if len(v.lines) <= v.height {
		return 0
	}
	return len(v.lines) - v.height
}

// Render renders the inspector view.
func (v *Inspector) Render() string {
	if !v.loaded {
		return lipgloss.NewStyle().Foreground(MutedColor).Render("Loading summary...")
	}

	if v.err != "" {
		return lipgloss.NewStyle().Foreground(ErrorColor).Render("Error loading summary: " + v.err)
	}

	if len(v.lines) == 0 {
		return lipgloss.NewStyle().Foreground(MutedColor).Render("No summary yet")
	}

	var content strings.Builder

	visibleEnd := v.offset + v.height
	if visibleEnd > len(v.lines) {
		visibleEnd = len(v.lines)
	}

	for i := v.offset; i < visibleEnd; i++ {
		content.WriteString(v.lines[i])
		if i < visibleEnd-1 {
			content.WriteString("\n")
		}
	}

	return content.String()
}
