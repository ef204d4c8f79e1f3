package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/civicwatch/herald/internal/ledger"
)

// HistoryView displays past badge notifications, newest first, with
// scrolling.
type HistoryView struct {
	lines  []string
	offset int
	width  int
	height int
}

// NewHistoryView creates a new history view.
func NewHistoryView() *HistoryView {
	return &HistoryView{}
}

// SetSize sets the viewport dimensions.
func (h *HistoryView) SetSize(width, height int) {
	h.width = width
	h.height = height
}

// SetEntries rebuilds the view from ledger entries. The input order
// does not matter; rows are sorted newest first.
func (h *HistoryView) SetEntries(entries []ledger.Entry) {
	h.offset = 0

	sorted := make([]ledger.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].NotifiedAt.After(sorted[j].NotifiedAt)
	})

	timeStyle := lipgloss.NewStyle().Foreground(MutedColor)
	nameStyle := lipgloss.NewStyle().Foreground(TextColor)
	pointsStyle := lipgloss.NewStyle().Foreground(WarningColor)

	h.lines = nil
	for _, e := range sorted {
		var row strings.Builder
		row.WriteString(timeStyle.Render(e.NotifiedAt.Local().Format("2006-01-02 15:04")))
		row.WriteString("  ")
		name := e.Name
		if name == "" {
			name = e.Code
		}
		row.WriteString(nameStyle.Render(name))
		if e.Points > 0 {
			row.WriteString(pointsStyle.Render(fmt.Sprintf(" +%d", e.Points)))
		}
		h.lines = append(h.lines, row.String())
	}
}

// ScrollUp scrolls up one line.
func (h *HistoryView) ScrollUp() {
	if h.offset > 0 {
		h.offset--
	}
}

// ScrollDown scrolls down one line.
func (h *HistoryView) ScrollDown() {
	if h.offset < h.maxOffset() {
		h.offset++
	}
}

// PageUp scrolls up half a page.
func (h *HistoryView) PageUp() {
	h.offset -= h.height / 2
	if h.offset < 0 {
		h.offset = 0
	}
}

// PageDown scrolls down half a page.
func (h *HistoryView) PageDown() {
	h.offset += h.height / 2
	maxOffset := h.maxOffset()
	if h.offset > maxOffset {
		h.offset = maxOffset
	}
}

func (h *HistoryView) maxOffset() int {
	if len(h.lines) <= h.height {
		return 0
	}
	return len(h.lines) - h.height
}

// Render renders the history view.
func (h *HistoryView) Render() string {
	if len(h.lines) == 0 {
		return lipgloss.NewStyle().Foreground(MutedColor).Render("No badges notified yet")
	}

	var content strings.Builder

	visibleEnd := h.offset + h.height
	if visibleEnd > len(h.lines) {
		visibleEnd = len(h.lines)
	}

	for i := h.offset; i < visibleEnd; i++ {
		content.WriteString(h.lines[i])
		if i < visibleEnd-1 {
			content.WriteString("\n")
		}
	}

	return content.String()
}
