package tui

// Tab identifies one of the app's views.
type Tab int

const (
	TabStatus Tab = iota
	TabBadges
	TabHistory
	TabInspector
)

// tabCount is the number of tabs in display order.
const tabCount = 4

// String returns the tab title shown in the tab bar.
func (t Tab) String() string {
	switch t {
	case TabStatus:
		return "Status"
	case TabBadges:
		return "Badges"
	case TabHistory:
		return "History"
	case TabInspector:
		return "Inspector"
	default:
		return "Unknown"
	}
}

// overlay identifies which modal, if any, covers the app.
type overlay int

const (
	overlayNone overlay = iota
	overlayConsent
	overlayFlow
)
