// Package chime plays the short notification sound. Audio output stays
// locked until the user interacts with the program: the first input
// event after arming opens the output device, and every later event is
// ignored. If the device cannot be opened the chime is silently
// disabled for the rest of the session, notifications themselves are
// never blocked on audio.
package chime

import (
	"sync"
	"time"

	"github.com/civicwatch/herald/internal/logging"
	"github.com/civicwatch/herald/internal/platform"
)

// readyTimeout caps how long a queued chime waits for the output
// device to come up before being dropped.
const readyTimeout = 3 * time.Second

// Manager owns the output device and the one-shot unlock state.
type Manager struct {
	audio platform.AudioPlatform
	log   *logging.Logger

	mu      sync.Mutex
	enabled bool
	armed   bool
	device  platform.AudioDevice
	pcm     []byte
}

// NewManager creates a chime manager. The manager starts locked, call
// Arm and then feed input events to Gesture to open the device.
func NewManager(audio platform.AudioPlatform, enabled bool, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		audio:   audio,
		log:     log,
		enabled: enabled,
		pcm:     generateChime(),
	}
}

// Arm makes the next input event open the audio device. Arming an
// already unlocked manager has no effect.
func (m *Manager) Arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return
	}
	m.armed = true
}

// Gesture consumes one user input event. The first event after arming
// opens the output device, success or not, later events are ignored.
func (m *Manager) Gesture() {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return
	}
	m.armed = false
	audio := m.audio
	m.mu.Unlock()

	if audio == nil {
		return
	}
	dev, err := audio.Open(SampleRate, Channels)
	if err != nil {
		m.log.Debug("audio unlock failed, chime disabled for this session", "error", err)
		return
	}

	m.mu.Lock()
	m.device = dev
	m.mu.Unlock()
	m.log.Debug("audio device opened")
}

// Unlocked reports whether the output device has been opened.
func (m *Manager) Unlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device != nil
}

// SetEnabled enables or disables the chime sound.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// IsEnabled returns whether the chime sound is enabled.
func (m *Manager) IsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Play queues the chime. It returns immediately and does nothing when
// the sound is disabled or the device is still locked. A device that
// is open but not yet ready gets readyTimeout to come up.
func (m *Manager) Play() {
	m.mu.Lock()
	enabled, dev, pcm := m.enabled, m.device, m.pcm
	m.mu.Unlock()

	if !enabled || dev == nil {
		return
	}
	go func() {
		select {
		case <-dev.Ready():
		case <-time.After(readyTimeout):
			return
		}
		dev.Play(pcm)
	}()
}
