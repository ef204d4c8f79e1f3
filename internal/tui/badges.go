package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/civicwatch/herald/internal/badge"
)

// BadgeList displays the badge catalog from the engagement summary with
// obtained markers and scrolling.
type BadgeList struct {
	lines  []string
	offset int
	width  int
	height int
	err    string
	loaded bool
}

// NewBadgeList creates a new badge list.
func NewBadgeList() *BadgeList {
	return &BadgeList{}
}

// SetSize sets the viewport dimensions.
func (l *BadgeList) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// SetSummary rebuilds the rendered lines from a fresh summary.
func (l *BadgeList) SetSummary(s *badge.Summary) {
	l.loaded = true
	l.err = ""
	l.offset = 0
	l.lines = buildBadgeLines(s)
}

// SetError records a summary fetch failure.
func (l *BadgeList) SetError(msg string) {
	l.loaded = true
	l.err = msg
	l.lines = nil
}

// ScrollUp scrolls up one line.
func (l *BadgeList) ScrollUp() {
	if l.offset > 0 {
		l.offset--
	}
}

// ScrollDown scrolls down one line.
func (l *BadgeList) ScrollDown() {
	if l.offset < l.maxOffset() {
		l.offset++
	}
}

// PageUp scrolls up half a page.
func (l *BadgeList) PageUp() {
	l.offset -= l.height / 2
	if l.offset < 0 {
		l.offset = 0
	}
}

// PageDown scrolls down half a page.
func (l *BadgeList) PageDown() {
	l.offset += l.height / 2
	maxOffset := l.maxOffset()
	if l.offset > maxOffset {
		l.offset = maxOffset
	}
}

func (l *BadgeList) maxOffset() int {
	if len(l.lines) <= l.height {
		return 0
	}
	return len(l.lines) - l.height
}

// Render renders the badge list.
func (l *BadgeList) Render() string {
	if !l.loaded {
		return lipgloss.NewStyle().Foreground(MutedColor).Render("Loading badges...")
	}

	if l.err != "" {
		return lipgloss.NewStyle().Foreground(ErrorColor).Render("Error loading badges: " + l.err)
	}

	if len(l.lines) == 0 {
		return lipgloss.NewStyle().Foreground(MutedColor).Render("No badges in the catalog yet")
	}

	var content strings.Builder

	visibleEnd := l.offset + l.height
	if visibleEnd > len(l.lines) {
		visibleEnd = len(l.lines)
	}

	for i := l.offset; i < visibleEnd; i++ {
		content.WriteString(l.lines[i])
		if i < visibleEnd-1 {
			content.WriteString("\n")
		}
	}

	return content.String()
}

// buildBadgeLines renders the summary into display lines: a header with
// totals, then one row per catalog entry.
func buildBadgeLines(s *badge.Summary) []string {
	headerStyle := lipgloss.NewStyle().Foreground(TextBrightColor).Bold(true)
	obtainedStyle := lipgloss.NewStyle().Foreground(SuccessColor)
	nameStyle := lipgloss.NewStyle().Foreground(TextColor)
	lockedStyle := lipgloss.NewStyle().Foreground(MutedColor)
	pointsStyle := lipgloss.NewStyle().Foreground(WarningColor)

	obtained := 0
	for _, b := range s.Badges {
		if b.Obtained {
			obtained++
		}
	}

	lines := []string{
		headerStyle.Render(fmt.Sprintf("%d of %d unlocked", obtained, len(s.Badges))) +
			lockedStyle.Render(fmt.Sprintf("  %d pts, level %d", s.Points, s.Level)),
		"",
	}

	for _, b := range s.Badges {
		var row strings.Builder
		if b.Obtained {
			row.WriteString(obtainedStyle.Render("● "))
			row.WriteString(nameStyle.Render(badgeTitle(b.Badge)))
			if b.Points > 0 {
				row.WriteString(pointsStyle.Render(fmt.Sprintf(" +%d", b.Points)))
			}
		} else {
			row.WriteString(lockedStyle.Render("○ "))
			row.WriteString(lockedStyle.Render(badgeTitle(b.Badge)))
		}
		lines = append(lines, row.String())

		if b.Description != "" {
			lines = append(lines, lockedStyle.Render("  "+b.Description))
		}
	}

	return lines
}

// badgeTitle prefers the display name, falling back to the code.
func badgeTitle(b badge.Badge) string {
	name := b.Name
	if name == "" {
		name = b.Code
	}
	if b.Icon != "" {
		return b.Icon + " " + name
	}
	return name
}
