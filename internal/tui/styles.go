package tui

import "github.com/charmbracelet/lipgloss"

// Shared palette. Components build their own styles from these colors
// so the whole app can be re-themed in one place.
var (
	PrimaryColor    = lipgloss.Color("39")
	SuccessColor    = lipgloss.Color("42")
	WarningColor    = lipgloss.Color("214")
	ErrorColor      = lipgloss.Color("196")
	TextColor       = lipgloss.Color("252")
	TextBrightColor = lipgloss.Color("255")
	MutedColor      = lipgloss.Color("241")

	DividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	FooterStyle = lipgloss.NewStyle().Foreground(MutedColor)
)

// centerOverlay centers a rendered modal inside a width x height area.
func centerOverlay(modal string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
