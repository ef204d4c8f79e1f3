package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/civicwatch/herald/internal/push"
)

// flowStep holds the display info for one step of the subscribe flow.
type flowStep struct {
	label  string
	done   string
	active bool
	errMsg string

	complete bool
}

// SubscribeFlow manages the push subscribe/unsubscribe progress
// overlay. Steps advance as the push manager reports stages; hiding
// the overlay does not stop the underlying work.
type SubscribeFlow struct {
	width  int
	height int

	enabling     bool
	steps        []flowStep
	currentIdx   int
	spinnerFrame int
	errMsg       string
	finished     bool
}

// NewSubscribeFlow creates a new subscribe flow overlay.
func NewSubscribeFlow() *SubscribeFlow {
	return &SubscribeFlow{}
}

// Configure resets the flow for a subscribe (enabling) or unsubscribe
// (disabling) run.
func (f *SubscribeFlow) Configure(enabling bool) {
	f.enabling = enabling
	f.currentIdx = 0
	f.spinnerFrame = 0
	f.errMsg = ""
	f.finished = false

	if enabling {
		f.steps = []flowStep{
			{label: "Requesting notification permission", done: "Permission granted"},
			{label: "Fetching server key", done: "Fetched server key"},
			{label: "Opening push channel", done: "Opened push channel"},
			{label: "Resolving device location", done: "Resolved device location"},
			{label: "Registering with CivicWatch", done: "Registered with CivicWatch"},
		}
	} else {
		f.steps = []flowStep{
			{label: "Removing push subscription", done: "Removed push subscription"},
		}
	}

	if len(f.steps) > 0 {
		f.steps[0].active = true
	}
}

// SetSize sets the overlay dimensions.
func (f *SubscribeFlow) SetSize(width, height int) {
	f.width = width
	f.height = height
}

// SetStage marks the steps before stage as complete and activates the
// step for stage. Stage values map onto the enabling step list.
func (f *SubscribeFlow) SetStage(stage push.Stage) {
	idx := int(stage)
	if idx < 0 || idx >= len(f.steps) {
		return
	}
	for i := 0; i < idx; i++ {
		f.steps[i].complete = true
		f.steps[i].active = false
	}
	f.steps[idx].active = true
	f.currentIdx = idx
}

// Finish marks every step complete.
func (f *SubscribeFlow) Finish() {
	for i := range f.steps {
		f.steps[i].complete = true
		f.steps[i].active = false
	}
	f.finished = true
}

// SetError sets an error on the current step.
func (f *SubscribeFlow) SetError(err string) {
	f.errMsg = err
	if f.currentIdx >= 0 && f.currentIdx < len(f.steps) {
		f.steps[f.currentIdx].errMsg = err
		f.steps[f.currentIdx].active = false
	}
}

// HasError returns true if a step failed.
func (f *SubscribeFlow) HasError() bool {
	return f.errMsg != ""
}

// IsDone returns true once every step completed.
func (f *SubscribeFlow) IsDone() bool {
	return f.finished
}

// IsEnabling returns true when the flow is a subscribe run.
func (f *SubscribeFlow) IsEnabling() bool {
	return f.enabling
}

// Tick advances the spinner animation frame.
func (f *SubscribeFlow) Tick() {
	f.spinnerFrame++
}

// Render renders the progress overlay.
func (f *SubscribeFlow) Render() string {
	modalWidth := min(60, f.width-10)
	if modalWidth < 40 {
		modalWidth = 40
	}

	var content strings.Builder

	title := "Setting up push notifications"
	if !f.enabling {
		title = "Removing push subscription"
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	content.WriteString(titleStyle.Render(title))
	content.WriteString("\n")
	content.WriteString(DividerStyle.Render(strings.Repeat("─", modalWidth-4)))
	content.WriteString("\n\n")

	spinnerFrames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinnerStyle := lipgloss.NewStyle().Foreground(PrimaryColor)
	checkStyle := lipgloss.NewStyle().Foreground(SuccessColor)
	errorStyle := lipgloss.NewStyle().Foreground(ErrorColor)
	textStyle := lipgloss.NewStyle().Foreground(TextColor)
	mutedStyle := lipgloss.NewStyle().Foreground(MutedColor)

	for _, step := range f.steps {
		if step.complete {
			content.WriteString(checkStyle.Render("✓"))
			content.WriteString(" ")
			content.WriteString(textStyle.Render(step.done))
		} else if step.errMsg != "" {
			content.WriteString(errorStyle.Render("✗"))
			content.WriteString(" ")
			content.WriteString(errorStyle.Render(step.label))
			content.WriteString("\n")
			content.WriteString("  ")
			content.WriteString(errorStyle.Render(step.errMsg))
		} else if step.active {
			frame := spinnerFrames[f.spinnerFrame%len(spinnerFrames)]
			content.WriteString(spinnerStyle.Render(frame))
			content.WriteString(" ")
			content.WriteString(textStyle.Render(step.label))
		} else {
			content.WriteString(mutedStyle.Render("○"))
			content.WriteString(" ")
			content.WriteString(mutedStyle.Render(step.label))
		}
		content.WriteString("\n")
	}

	if f.IsDone() {
		content.WriteString("\n")
		if f.enabling {
			content.WriteString(checkStyle.Render("Push notifications enabled"))
		} else {
			content.WriteString(checkStyle.Render("Push notifications disabled"))
		}
	}

	content.WriteString("\n")
	content.WriteString(DividerStyle.Render(strings.Repeat("─", modalWidth-4)))
	content.WriteString("\n")

	if f.HasError() {
		content.WriteString(FooterStyle.Render("Esc: Close"))
	} else if !f.IsDone() {
		content.WriteString(FooterStyle.Render("Esc: Hide (keeps running)"))
	}

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(1, 2).
		Width(modalWidth)

	return centerOverlay(modalStyle.Render(content.String()), f.width, f.height)
}
