// Package push manages the push-subscription lifecycle: the consent
// prompt, key exchange with the backend, channel registration, and
// best-effort location enrichment. Everything here is an enhancement
// layer. The only failures a user ever sees are the ones caused by
// their own explicit subscribe or unsubscribe action.
package push

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/logging"
	"github.com/civicwatch/herald/internal/platform"
	"github.com/civicwatch/herald/internal/toast"
)

const (
	// readyTimeout caps the startup wait for platform readiness.
	readyTimeout = 5 * time.Second
	// locationTimeout caps the optional position fix during subscribe.
	locationTimeout = 5 * time.Second
	// streamRetryDelay paces reconnects of the delivery stream.
	streamRetryDelay = 15 * time.Second
)

// State of the push subscription lifecycle.
type State string

const (
	// StateUnsupported is terminal: the host cannot deliver push.
	StateUnsupported State = "unsupported"
	// StateUnknown holds until Init has determined the real state.
	StateUnknown State = "unknown"
	// StateUnsubscribed means push works but no channel is active.
	StateUnsubscribed State = "unsubscribed"
	// StateSubscribed means an active channel is registered.
	StateSubscribed State = "subscribed"
)

var errReadyTimeout = errors.New("readiness wait timed out")

// Stage identifies a phase of the subscribe pipeline, in order.
type Stage int

const (
	StagePermission Stage = iota
	StageServerKey
	StageChannel
	StageLocation
	StageRegister
)

// Manager drives the subscription state machine.
type Manager struct {
	pp     platform.PushPlatform
	loc    platform.LocationPlatform
	client *api.Client
	notify toast.Notifier
	log    *logging.Logger

	readyWait    time.Duration
	locationWait time.Duration

	mu      sync.Mutex
	state   State
	loading bool
	onStage func(Stage)
}

// NewManager creates a manager in the unknown state. Call Init once at
// startup to resolve it.
func NewManager(pp platform.PushPlatform, loc platform.LocationPlatform, client *api.Client, notify toast.Notifier, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	if loc == nil {
		loc = platform.NoLocation{}
	}
	return &Manager{
		pp:           pp,
		loc:          loc,
		client:       client,
		notify:       notify,
		log:          log,
		readyWait:    readyTimeout,
		locationWait: locationTimeout,
		state:        StateUnknown,
	}
}

// Init determines the starting state. It never blocks past the
// readiness window and never surfaces errors: a client that cannot
// reach its relay simply starts out unsubscribed. When a persisted
// subscription is found it is silently re-POSTed to the backend so the
// channel is linked to the current device identity.
func (m *Manager) Init(ctx context.Context) {
	if !m.pp.Supported() {
		m.setState(StateUnsupported)
		return
	}

	if err := m.raceReady(ctx); err != nil {
		m.log.Debug("push readiness not confirmed", "error", err)
		m.setState(StateUnsubscribed)
		return
	}

	sub, err := m.pp.Existing()
	if err != nil {
		m.log.Debug("existing subscription lookup failed", "error", err)
	}
	if sub == nil {
		m.setState(StateUnsubscribed)
		return
	}

	m.setState(StateSubscribed)
	if err := m.client.SubscribePush(ctx, sub, nil); err != nil {
		m.log.Debug("subscription re-link failed", "error", err)
	}
}

// OnStage installs a callback observing subscribe pipeline progress.
// Intended for UI spinners; leave unset otherwise.
func (m *Manager) OnStage(fn func(Stage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStage = fn
}

func (m *Manager) stage(s Stage) {
	m.mu.Lock()
	fn := m.onStage
	m.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Subscribe runs the full opt-in flow. Any failure leaves the state
// unchanged and shows exactly one error message so the user can retry.
func (m *Manager) Subscribe(ctx context.Context) {
	m.mu.Lock()
	if m.loading || m.state == StateUnsupported {
		m.mu.Unlock()
		return
	}
	m.loading = true
	m.mu.Unlock()
	defer m.clearLoading()

	m.stage(StagePermission)
	perm, err := m.pp.RequestPermission(ctx)
	if err != nil || perm != platform.PermissionGranted {
		if err != nil {
			m.log.Debug("permission prompt failed", "error", err)
		}
		m.notify.Error("Push notifications need permission to be enabled")
		return
	}

	m.stage(StageServerKey)
	keyB64, err := m.client.VapidKey(ctx)
	if err != nil {
		m.log.Warn("server key fetch failed", "error", err)
		m.notify.Error("Could not enable push notifications")
		return
	}
	key, err := DecodeServerKey(keyB64)
	if err != nil {
		m.log.Warn("server key malformed", "error", err)
		m.notify.Error("Could not enable push notifications")
		return
	}

	m.stage(StageChannel)
	sub, err := m.pp.Subscribe(ctx, key)
	if err != nil {
		m.log.Warn("platform subscribe failed", "error", err)
		m.notify.Error("Could not enable push notifications")
		return
	}

	m.stage(StageLocation)
	loc := m.currentLocation(ctx)

	m.stage(StageRegister)
	if err := m.client.SubscribePush(ctx, sub, loc); err != nil {
		m.log.Warn("backend subscribe failed", "error", err)
		m.notify.Error("Could not enable push notifications")
		return
	}

	m.setState(StateSubscribed)
	m.notify.Success("Push notifications enabled", 0)
}

// Unsubscribe tears the channel down. The platform teardown must
// succeed, the backend deactivation is best-effort only.
func (m *Manager) Unsubscribe(ctx context.Context) {
	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return
	}
	m.loading = true
	m.mu.Unlock()
	defer m.clearLoading()

	if err := m.pp.Unsubscribe(ctx); err != nil {
		m.log.Warn("platform unsubscribe failed", "error", err)
		m.notify.Error("Could not disable push notifications")
		return
	}

	if err := m.client.UnsubscribePush(ctx); err != nil {
		m.log.Debug("backend deactivate failed", "error", err)
	}

	m.setState(StateUnsubscribed)
	m.notify.Success("Push notifications disabled", 0)
}

// UpdateLocation pushes a new position to the backend. It is a no-op
// unless subscribed, and failures are logged only.
func (m *Manager) UpdateLocation(ctx context.Context, lat, lng float64) {
	if m.State() != StateSubscribed {
		return
	}
	if err := m.client.UpdatePushLocation(ctx, lat, lng); err != nil {
		m.log.Debug("location update failed", "error", err)
	}
}

// Receiver is the optional streaming side of a push platform: a
// blocking loop that hands over notifications as they arrive.
type Receiver interface {
	Listen(ctx context.Context, deliver func(platform.PushMessage)) error
}

// Run keeps a delivery stream open whenever the device is subscribed,
// surfacing each pushed notification as a toast. It blocks until the
// context ends. Platforms without a stream make it a no-op.
func (m *Manager) Run(ctx context.Context) {
	rec, ok := m.pp.(Receiver)
	if !ok {
		return
	}

	for {
		if m.State() == StateSubscribed {
			err := rec.Listen(ctx, func(msg platform.PushMessage) {
				if text := formatPush(msg); text != "" {
					m.notify.Success(text, 0)
				}
			})
			if err != nil && ctx.Err() == nil {
				m.log.Debug("delivery stream closed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(streamRetryDelay):
		}
	}
}

func formatPush(msg platform.PushMessage) string {
	switch {
	case msg.Title == "":
		return msg.Body
	case msg.Body == "":
		return msg.Title
	}
	return msg.Title + ": " + msg.Body
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Loading reports whether a subscribe or unsubscribe is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Permission reads the live consent answer from the platform.
func (m *Manager) Permission() platform.Permission {
	return m.pp.Permission()
}

// raceReady waits for platform readiness, giving up after readyWait.
// A readiness result that arrives after the timeout is discarded.
func (m *Manager) raceReady(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- m.pp.Ready(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(m.readyWait):
		return errReadyTimeout
	}
}

// currentLocation makes one attempt at a position fix. Denial or a
// timeout yields nil: subscribing never fails on location.
func (m *Manager) currentLocation(ctx context.Context) *platform.Coords {
	ctx, cancel := context.WithTimeout(ctx, m.locationWait)
	defer cancel()
	coords, err := m.loc.Current(ctx)
	if err != nil {
		m.log.Debug("no position fix for subscription", "error", err)
		return nil
	}
	return &coords
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Manager) clearLoading() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
}

// DecodeServerKey decodes the backend's base64url public key, with or
// without padding, into raw bytes.
func DecodeServerKey(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode server key: %w", err)
	}
	return data, nil
}
