package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConsentOption represents the user's choice in the permission dialog.
type ConsentOption int

const (
	ConsentAllow ConsentOption = iota
	ConsentDeny
	ConsentDismiss
)

// errConsentDismissed marks a dismissed prompt. The stored answer stays
// at its default so the user can be asked again later.
var errConsentDismissed = errors.New("consent prompt dismissed")

// consentRequestMsg asks the app to open the consent dialog. The
// user's answer is sent back on reply.
type consentRequestMsg struct {
	reply chan ConsentOption
}

// consentOption is a single dialog entry.
type consentOption struct {
	label       string
	hint        string
	recommended bool
	option      ConsentOption
}

// ConsentDialog asks whether push notifications may be enabled. Allow
// and deny are remembered on this device; dismissing leaves the
// question open.
type ConsentDialog struct {
	width         int
	height        int
	selectedIndex int
	options       []consentOption
}

// NewConsentDialog creates the dialog with its fixed option set.
func NewConsentDialog() *ConsentDialog {
	d := &ConsentDialog{}
	d.buildOptions()
	return d
}

func (c *ConsentDialog) buildOptions() {
	c.options = []consentOption{
		{
			label:       "Allow",
			hint:        "get alerted when your reports are confirmed",
			recommended: true,
			option:      ConsentAllow,
		},
		{
			label:  "Don't allow",
			hint:   "remembered, Herald will not ask again",
			option: ConsentDeny,
		},
		{
			label:  "Not now",
			option: ConsentDismiss,
		},
	}
}

// SetSize sets the dialog dimensions.
func (c *ConsentDialog) SetSize(width, height int) {
	c.width = width
	c.height = height
}

// MoveUp moves selection up.
func (c *ConsentDialog) MoveUp() {
	if c.selectedIndex > 0 {
		c.selectedIndex--
	}
}

// MoveDown moves selection down.
func (c *ConsentDialog) MoveDown() {
	if c.selectedIndex < len(c.options)-1 {
		c.selectedIndex++
	}
}

// GetSelectedOption returns the currently selected option.
func (c *ConsentDialog) GetSelectedOption() ConsentOption {
	if c.selectedIndex >= 0 && c.selectedIndex < len(c.options) {
		return c.options[c.selectedIndex].option
	}
	return ConsentDismiss
}

// Reset resets the selection.
func (c *ConsentDialog) Reset() {
	c.selectedIndex = 0
}

// Render renders the consent dialog.
func (c *ConsentDialog) Render() string {
	modalWidth := min(60, c.width-10)
	if modalWidth < 40 {
		modalWidth = 40
	}

	var content strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	content.WriteString(titleStyle.Render("Enable Push Notifications?"))
	content.WriteString("\n")
	content.WriteString(DividerStyle.Render(strings.Repeat("─", modalWidth-4)))
	content.WriteString("\n\n")

	messageStyle := lipgloss.NewStyle().Foreground(TextColor)
	content.WriteString(messageStyle.Render("CivicWatch can notify this device when your"))
	content.WriteString("\n")
	content.WriteString(messageStyle.Render("reports are confirmed or resolved."))
	content.WriteString("\n\n")

	c.renderOptions(&content)

	content.WriteString("\n")
	content.WriteString(DividerStyle.Render(strings.Repeat("─", modalWidth-4)))
	content.WriteString("\n")
	content.WriteString(FooterStyle.Render("↑/↓: Navigate  Enter: Select  Esc: Not now"))

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(1, 2).
		Width(modalWidth)

	return centerOverlay(modalStyle.Render(content.String()), c.width, c.height)
}

// renderOptions renders the selectable options list.
func (c *ConsentDialog) renderOptions(content *strings.Builder) {
	optionStyle := lipgloss.NewStyle().Foreground(TextColor)
	selectedStyle := lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	hintStyle := lipgloss.NewStyle().Foreground(MutedColor)
	recommendedStyle := lipgloss.NewStyle().Foreground(SuccessColor)

	for i, opt := range c.options {
		if i == c.selectedIndex {
			content.WriteString(selectedStyle.Render(fmt.Sprintf("▶ %s", opt.label)))
		} else {
			content.WriteString(optionStyle.Render(fmt.Sprintf("  %s", opt.label)))
		}

		if opt.recommended {
			content.WriteString(" ")
			content.WriteString(recommendedStyle.Render("(Recommended)"))
		}
		content.WriteString("\n")

		if opt.hint != "" {
			content.WriteString(hintStyle.Render(fmt.Sprintf("    → %s", opt.hint)))
			content.WriteString("\n")
		}
	}
}

// ConsentPrompt bridges the platform consent callback into the running
// program. Ask blocks its caller until the dialog is answered or ctx
// expires, so it must only run from a command goroutine, never from
// the update loop itself.
type ConsentPrompt struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewConsentPrompt creates a detached prompt.
func NewConsentPrompt() *ConsentPrompt {
	return &ConsentPrompt{}
}

// Attach connects the prompt to a running program's send func.
func (c *ConsentPrompt) Attach(send func(tea.Msg)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send = send
}

// Ask opens the dialog and waits for the answer.
func (c *ConsentPrompt) Ask(ctx context.Context) (bool, error) {
	c.mu.Lock()
	send := c.send
	c.mu.Unlock()
	if send == nil {
		return false, errors.New("no consent surface attached")
	}

	reply := make(chan ConsentOption, 1)
	send(consentRequestMsg{reply: reply})

	select {
	case choice := <-reply:
		switch choice {
		case ConsentAllow:
			return true, nil
		case ConsentDeny:
			return false, nil
		default:
			return false, errConsentDismissed
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
