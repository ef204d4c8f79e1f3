package tui

import (
	"strings"
	"testing"

	"github.com/civicwatch/herald/internal/platform"
	"github.com/civicwatch/herald/internal/push"
)

func TestStatusPanelSubscribed(t *testing.T) {
	p := NewStatusPanel()
	p.SetSize(100, 20)
	p.SetData(StatusData{
		PushState:     push.StateSubscribed,
		Permission:    platform.PermissionGranted,
		SoundEnabled:  true,
		SoundUnlocked: true,
		Notified:      4,
		SummaryLoaded: true,
		Points:        120,
		Level:         3,
		Reports:       14,
		Comments:      9,
		DeviceID:      "4810f588-2e91-4b5e-8a7e-000000000000",
		Server:        "https://api.civicwatch.org",
		Schedule:      "@every 5m",
	})

	result := p.Render()
	if !strings.Contains(result, "subscribed") {
		t.Errorf("expected subscribed state, got: %s", result)
	}
	if !strings.Contains(result, "granted") {
		t.Errorf("expected permission, got: %s", result)
	}
	if !strings.Contains(result, "4 badge(s)") {
		t.Errorf("expected notified count, got: %s", result)
	}
	if !strings.Contains(result, "120") {
		t.Errorf("expected points, got: %s", result)
	}
	if !strings.Contains(result, "4810f588") {
		t.Errorf("expected short device id, got: %s", result)
	}
	if strings.Contains(result, "4810f588-2e91") {
		t.Errorf("expected device id to be truncated, got: %s", result)
	}
	if !strings.Contains(result, "@every 5m") {
		t.Errorf("expected poll schedule, got: %s", result)
	}
}

func TestStatusPanelUnsupported(t *testing.T) {
	p := NewStatusPanel()
	p.SetSize(100, 20)
	p.SetData(StatusData{
		PushState:  push.StateUnsupported,
		Permission: platform.PermissionDefault,
	})

	if got := p.Render(); !strings.Contains(got, "unsupported on this platform") {
		t.Errorf("expected unsupported state, got: %s", got)
	}
}

func TestStatusPanelSubscribing(t *testing.T) {
	p := NewStatusPanel()
	p.SetSize(100, 20)
	p.SetData(StatusData{
		PushState:   push.StateUnsubscribed,
		Subscribing: true,
	})

	if got := p.Render(); !strings.Contains(got, "subscribing...") {
		t.Errorf("expected in-flight state, got: %s", got)
	}
}

func TestStatusPanelMutedSound(t *testing.T) {
	p := NewStatusPanel()
	p.SetSize(100, 20)
	p.SetData(StatusData{SoundEnabled: false})

	if got := p.Render(); !strings.Contains(got, "muted") {
		t.Errorf("expected muted sound, got: %s", got)
	}
}

func TestStatusPanelLockedSound(t *testing.T) {
	p := NewStatusPanel()
	p.SetSize(100, 20)
	p.SetData(StatusData{SoundEnabled: true, SoundUnlocked: false})

	if got := p.Render(); !strings.Contains(got, "waiting for first keypress") {
		t.Errorf("expected locked sound hint, got: %s", got)
	}
}

func TestStatusPanelSummaryStates(t *testing.T) {
	p := NewStatusPanel()
	p.SetSize(100, 20)

	p.SetData(StatusData{})
	if got := p.Render(); !strings.Contains(got, "loading...") {
		t.Errorf("expected summary loading, got: %s", got)
	}

	p.SetData(StatusData{SummaryErr: "connection refused"})
	if got := p.Render(); !strings.Contains(got, "connection refused") {
		t.Errorf("expected summary error, got: %s", got)
	}

	p.SetData(StatusData{SummaryLoaded: true, Points: 7})
	if got := p.Render(); !strings.Contains(got, "7") {
		t.Errorf("expected summary values, got: %s", got)
	}
}

func TestStatusPanelNoSchedule(t *testing.T) {
	p := NewStatusPanel()
	p.SetSize(100, 20)
	p.SetData(StatusData{Schedule: ""})

	if got := p.Render(); !strings.Contains(got, "off") {
		t.Errorf("expected poll off, got: %s", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("4810f588-2e91"); got != "4810f588" {
		t.Errorf("expected 8-char prefix, got %q", got)
	}
	if got := shortID("tiny"); got != "tiny" {
		t.Errorf("expected short id unchanged, got %q", got)
	}
}
