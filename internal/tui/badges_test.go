package tui

import (
	"strings"
	"testing"

	"github.com/civicwatch/herald/internal/badge"
)

func testSummary() *badge.Summary {
	return &badge.Summary{
		Points:   120,
		Level:    3,
		Reports:  14,
		Comments: 9,
		Badges: []badge.SummaryBadge{
			{Badge: badge.Badge{Code: "first-report", Name: "First Report", Points: 10, Description: "File your first report"}, Obtained: true},
			{Badge: badge.Badge{Code: "night-owl", Name: "Night Owl", Points: 25}, Obtained: true},
			{Badge: badge.Badge{Code: "centurion", Name: "Centurion", Points: 100, Description: "File one hundred reports"}, Obtained: false},
		},
	}
}

func TestBadgeListLoading(t *testing.T) {
	l := NewBadgeList()
	l.SetSize(100, 20)

	if got := l.Render(); !strings.Contains(got, "Loading") {
		t.Errorf("expected loading placeholder, got: %s", got)
	}
}

func TestBadgeListRender(t *testing.T) {
	l := NewBadgeList()
	l.SetSize(100, 20)
	l.SetSummary(testSummary())

	result := l.Render()
	if !strings.Contains(result, "2 of 3 unlocked") {
		t.Errorf("expected unlocked header, got: %s", result)
	}
	if !strings.Contains(result, "120 pts, level 3") {
		t.Errorf("expected points header, got: %s", result)
	}
	if !strings.Contains(result, "●") || !strings.Contains(result, "First Report") {
		t.Errorf("expected obtained row, got: %s", result)
	}
	if !strings.Contains(result, "+10") {
		t.Errorf("expected obtained points, got: %s", result)
	}
	if !strings.Contains(result, "○") || !strings.Contains(result, "Centurion") {
		t.Errorf("expected locked row, got: %s", result)
	}
	if !strings.Contains(result, "File your first report") {
		t.Errorf("expected description row, got: %s", result)
	}
}

func TestBadgeListError(t *testing.T) {
	l := NewBadgeList()
	l.SetSize(100, 20)
	l.SetError("connection refused")

	if got := l.Render(); !strings.Contains(got, "connection refused") {
		t.Errorf("expected error message, got: %s", got)
	}
}

func TestBadgeListEmptyCatalog(t *testing.T) {
	l := NewBadgeList()
	l.SetSize(100, 20)
	l.SetSummary(&badge.Summary{})

	// Header lines still render for an empty catalog.
	if got := l.Render(); !strings.Contains(got, "0 of 0 unlocked") {
		t.Errorf("expected empty header, got: %s", got)
	}
}

func TestBadgeListScrollBounds(t *testing.T) {
	l := NewBadgeList()
	l.SetSize(100, 2)
	l.SetSummary(testSummary())

	l.ScrollUp()
	if l.offset != 0 {
		t.Errorf("expected offset to stay at 0, got %d", l.offset)
	}

	for i := 0; i < 50; i++ {
		l.ScrollDown()
	}
	if l.offset != l.maxOffset() {
		t.Errorf("expected offset clamped to %d, got %d", l.maxOffset(), l.offset)
	}

	l.PageUp()
	l.PageUp()
	l.PageUp()
	l.PageUp()
	if l.offset != 0 {
		t.Errorf("expected PageUp to clamp at 0, got %d", l.offset)
	}
}

func TestBadgeListScrollResetOnNewSummary(t *testing.T) {
	l := NewBadgeList()
	l.SetSize(100, 2)
	l.SetSummary(testSummary())
	l.ScrollDown()
	l.ScrollDown()

	l.SetSummary(testSummary())

	if l.offset != 0 {
		t.Errorf("expected fresh summary to reset scroll, got %d", l.offset)
	}
}

func TestBadgeTitleFallbacks(t *testing.T) {
	if got := badgeTitle(badge.Badge{Code: "x", Name: "Name"}); got != "Name" {
		t.Errorf("expected name, got %q", got)
	}
	if got := badgeTitle(badge.Badge{Code: "x"}); got != "x" {
		t.Errorf("expected code fallback, got %q", got)
	}
	if got := badgeTitle(badge.Badge{Code: "x", Name: "Name", Icon: "🏆"}); got != "🏆 Name" {
		t.Errorf("expected icon prefix, got %q", got)
	}
}
