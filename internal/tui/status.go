package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/civicwatch/herald/internal/platform"
	"github.com/civicwatch/herald/internal/push"
)

// StatusData is the snapshot the status panel renders. The app refreshes
// it whenever push state, sound state or the engagement summary changes.
type StatusData struct {
	PushState   push.State
	Permission  platform.Permission
	Subscribing bool

	SoundEnabled  bool
	SoundUnlocked bool

	Notified int

	SummaryLoaded bool
	SummaryErr    string
	Points        int
	Level         int
	Reports       int
	Comments      int

	DeviceID string
	Server   string
	Schedule string
}

// StatusPanel displays the current subsystem state as label/value rows.
type StatusPanel struct {
	width  int
	height int
	data   StatusData
}

// NewStatusPanel creates a new status panel.
func NewStatusPanel() *StatusPanel {
	return &StatusPanel{}
}

// SetSize sets the panel dimensions.
func (p *StatusPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetData replaces the rendered snapshot.
func (p *StatusPanel) SetData(data StatusData) {
	p.data = data
}

// Render renders the status panel.
func (p *StatusPanel) Render() string {
	labelStyle := lipgloss.NewStyle().Foreground(MutedColor).Width(14)
	valueStyle := lipgloss.NewStyle().Foreground(TextColor)
	okStyle := lipgloss.NewStyle().Foreground(SuccessColor)
	warnStyle := lipgloss.NewStyle().Foreground(WarningColor)
	errStyle := lipgloss.NewStyle().Foreground(ErrorColor)

	var b strings.Builder

	b.WriteString(labelStyle.Render("Push"))
	b.WriteString(p.renderPush(okStyle, warnStyle, errStyle, valueStyle))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Permission"))
	switch p.data.Permission {
	case platform.PermissionGranted:
		b.WriteString(okStyle.Render(string(p.data.Permission)))
	case platform.PermissionDenied:
		b.WriteString(errStyle.Render(string(p.data.Permission)))
	default:
		b.WriteString(valueStyle.Render(string(p.data.Permission)))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Sound"))
	if !p.data.SoundEnabled {
		b.WriteString(warnStyle.Render("muted"))
	} else if p.data.SoundUnlocked {
		b.WriteString(okStyle.Render("on"))
	} else {
		b.WriteString(valueStyle.Render("on "))
		b.WriteString(lipgloss.NewStyle().Foreground(MutedColor).Render("(waiting for first keypress)"))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Notified"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d badge(s)", p.data.Notified)))
	b.WriteString("\n\n")

	p.renderSummary(&b, labelStyle, valueStyle, errStyle)

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Device"))
	b.WriteString(valueStyle.Render(shortID(p.data.DeviceID)))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Server"))
	b.WriteString(valueStyle.Render(p.data.Server))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Poll"))
	if p.data.Schedule == "" {
		b.WriteString(lipgloss.NewStyle().Foreground(MutedColor).Render("off"))
	} else {
		b.WriteString(valueStyle.Render(p.data.Schedule))
	}
	b.WriteString("\n")

	return b.String()
}

func (p *StatusPanel) renderPush(okStyle, warnStyle, errStyle, valueStyle lipgloss.Style) string {
	if p.data.Subscribing {
		return warnStyle.Render("subscribing...")
	}
	switch p.data.PushState {
	case push.StateSubscribed:
		return okStyle.Render("● subscribed")
	case push.StateUnsupported:
		return errStyle.Render("unsupported on this platform")
	case push.StateUnsubscribed:
		return valueStyle.Render("○ off")
	default:
		return valueStyle.Render(string(p.data.PushState))
	}
}

func (p *StatusPanel) renderSummary(b *strings.Builder, labelStyle, valueStyle, errStyle lipgloss.Style) {
	if p.data.SummaryErr != "" {
		b.WriteString(labelStyle.Render("Summary"))
		b.WriteString(errStyle.Render(p.data.SummaryErr))
		b.WriteString("\n")
		return
	}
	if !p.data.SummaryLoaded {
		b.WriteString(labelStyle.Render("Summary"))
		b.WriteString(lipgloss.NewStyle().Foreground(MutedColor).Render("loading..."))
		b.WriteString("\n")
		return
	}

	b.WriteString(labelStyle.Render("Points"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", p.data.Points)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Level"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", p.data.Level)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Reports"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", p.data.Reports)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Comments"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", p.data.Comments)))
	b.WriteString("\n")
}

// shortID truncates a device ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
