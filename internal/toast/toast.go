// Package toast defines the transient user-feedback surface. The TUI
// renders toasts as an overlay stack, headless commands fall back to
// the log-backed notifier.
package toast

import (
	"time"

	"github.com/civicwatch/herald/internal/logging"
)

// DefaultDuration is how long a toast stays visible when the caller
// passes a zero duration.
const DefaultDuration = 6 * time.Second

// Notifier shows transient messages to the user.
type Notifier interface {
	// Success shows a positive message for the given duration.
	// A zero duration means DefaultDuration.
	Success(message string, duration time.Duration)
	// Error shows a failure message.
	Error(message string)
}

// LogNotifier writes toasts to the log instead of a screen overlay.
type LogNotifier struct {
	log *logging.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(log *logging.Logger) *LogNotifier {
	if log == nil {
		log = logging.Discard()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Success(message string, duration time.Duration) {
	n.log.Info(message)
}

func (n *LogNotifier) Error(message string) {
	n.log.Error(message)
}
