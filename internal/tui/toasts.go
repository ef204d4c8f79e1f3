package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/civicwatch/herald/internal/toast"
)

// toastLevel selects the toast accent color.
type toastLevel int

const (
	toastSuccess toastLevel = iota
	toastError
)

// toastMsg asks the app to show a toast.
type toastMsg struct {
	level    toastLevel
	message  string
	duration time.Duration
}

// toastExpiredMsg removes a toast after its duration.
type toastExpiredMsg struct {
	id int
}

type toastItem struct {
	id      int
	level   toastLevel
	message string
}

// Toasts is the stacked toast overlay. Newest entries render at the
// bottom of the stack.
type Toasts struct {
	width  int
	nextID int
	items  []toastItem
}

// NewToasts creates an empty toast stack.
func NewToasts() *Toasts {
	return &Toasts{}
}

// SetWidth sets the available width.
func (t *Toasts) SetWidth(width int) {
	t.width = width
}

// Push adds a toast and returns its id for later expiry.
func (t *Toasts) Push(level toastLevel, message string) int {
	t.nextID++
	t.items = append(t.items, toastItem{id: t.nextID, level: level, message: message})
	return t.nextID
}

// Expire removes the toast with the given id.
func (t *Toasts) Expire(id int) {
	for i, item := range t.items {
		if item.id == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return
		}
	}
}

// Active reports whether any toast is visible.
func (t *Toasts) Active() bool {
	return len(t.items) > 0
}

// Render renders the toast stack right-aligned, one bordered box per
// toast.
func (t *Toasts) Render() string {
	if len(t.items) == 0 {
		return ""
	}

	boxes := make([]string, 0, len(t.items))
	for _, item := range t.items {
		color := SuccessColor
		if item.level == toastError {
			color = ErrorColor
		}
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(color).
			Foreground(TextBrightColor).
			Padding(0, 1).
			Render(item.message)
		boxes = append(boxes, box)
	}

	stack := lipgloss.JoinVertical(lipgloss.Right, boxes...)
	if t.width > 0 {
		return lipgloss.PlaceHorizontal(t.width, lipgloss.Right, stack)
	}
	return stack
}

// Notifier posts toasts into the running program. It satisfies the
// notification subsystem's toast port. Until Attach is called, messages
// are dropped.
type Notifier struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewNotifier creates a detached notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Attach connects the notifier to a running program's send func.
func (n *Notifier) Attach(send func(tea.Msg)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.send = send
}

func (n *Notifier) post(msg tea.Msg) {
	n.mu.Lock()
	send := n.send
	n.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// Success shows a positive toast. A zero duration means the default.
func (n *Notifier) Success(message string, duration time.Duration) {
	if duration <= 0 {
		duration = toast.DefaultDuration
	}
	n.post(toastMsg{level: toastSuccess, message: message, duration: duration})
}

// Error shows a failure toast.
func (n *Notifier) Error(message string) {
	n.post(toastMsg{level: toastError, message: message, duration: toast.DefaultDuration})
}
