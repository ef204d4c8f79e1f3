package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TabEntry is one tab in the bar.
type TabEntry struct {
	Title    string
	Count    int // shown after the title, hidden when zero
	IsActive bool
}

// TabBar renders the tab strip under the app header.
type TabBar struct {
	width int
	tabs  []TabEntry
}

// NewTabBar creates an empty tab bar.
func NewTabBar() *TabBar {
	return &TabBar{}
}

// SetWidth sets the available width.
func (tb *TabBar) SetWidth(width int) {
	tb.width = width
}

// SetTabs replaces the tab entries.
func (tb *TabBar) SetTabs(tabs []TabEntry) {
	tb.tabs = tabs
}

// renderTab renders one full tab cell. index is the 1-based hotkey.
func (tb *TabBar) renderTab(entry TabEntry, index int) string {
	title := entry.Title
	if len(title) > 20 {
		title = title[:19] + "…"
	}

	var sb strings.Builder
	if entry.IsActive {
		sb.WriteString("◉ ")
	}
	sb.WriteString(fmt.Sprintf("%d:%s", index, title))
	if entry.Count > 0 {
		sb.WriteString(fmt.Sprintf(" [%d]", entry.Count))
	}

	style := lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 1)
	if entry.IsActive {
		style = lipgloss.NewStyle().Foreground(TextBrightColor).Bold(true).Padding(0, 1)
	}
	return style.Render(sb.String())
}

// renderCompactTab renders a minimal cell for narrow terminals: hotkey
// and title only, no count.
func (tb *TabBar) renderCompactTab(entry TabEntry, index int) string {
	title := entry.Title
	if len(title) > 8 {
		title = title[:7] + "…"
	}

	label := fmt.Sprintf("%d:%s", index, title)
	style := lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 1)
	if entry.IsActive {
		style = lipgloss.NewStyle().Foreground(TextBrightColor).Bold(true).Padding(0, 1)
	}
	return style.Render(label)
}

// Render renders the whole bar, dropping to compact cells when the
// full form does not fit.
func (tb *TabBar) Render() string {
	if len(tb.tabs) == 0 {
		return ""
	}

	cells := make([]string, len(tb.tabs))
	for i, tab := range tb.tabs {
		cells[i] = tb.renderTab(tab, i+1)
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cells...)

	if tb.width > 0 && lipgloss.Width(row) > tb.width {
		for i, tab := range tb.tabs {
			cells[i] = tb.renderCompactTab(tab, i+1)
		}
		row = lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	}
	return row
}
