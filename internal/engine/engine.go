// Package engine drives badge notifications. It merges badges reported
// directly by an action's response with badges discovered by polling
// the engagement summary, deduplicates against the persistent ledger,
// and fires the toast and chime side effects at most once per badge
// code, ever.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/badge"
	"github.com/civicwatch/herald/internal/bus"
	"github.com/civicwatch/herald/internal/chime"
	"github.com/civicwatch/herald/internal/ledger"
	"github.com/civicwatch/herald/internal/logging"
	"github.com/civicwatch/herald/internal/toast"
)

// startupCheckDelay postpones the first automatic check until the rest
// of the application has finished its own startup work. Badges awarded
// by the backend just before a restart are caught by this pass.
const startupCheckDelay = 3 * time.Second

// Engine is mounted once per process.
type Engine struct {
	client *api.Client
	store  ledger.Store
	notify toast.Notifier
	chime  *chime.Manager
	bus    *bus.Bus
	log    *logging.Logger

	startupDelay time.Duration

	mu           sync.Mutex
	checking     bool
	startupTimer *time.Timer
}

// New creates an engine. A nil notifier falls back to the log, a nil
// chime manager to a silent one.
func New(client *api.Client, store ledger.Store, notify toast.Notifier, ch *chime.Manager, b *bus.Bus, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	if notify == nil {
		notify = toast.NewLogNotifier(log)
	}
	if ch == nil {
		ch = chime.NewManager(nil, false, log)
	}
	return &Engine{
		client:       client,
		store:        store,
		notify:       notify,
		chime:        ch,
		bus:          b,
		log:          log,
		startupDelay: startupCheckDelay,
	}
}

// Check runs one badge pass. A non-empty provided list skips the
// network entirely. The poll path is guarded: while one poll is in
// flight further polls are dropped, not queued, because their result
// would be redundant. Poll failures stay silent.
func (e *Engine) Check(ctx context.Context, provided []badge.Badge) {
	if len(provided) > 0 {
		e.notifyNew(provided)
		return
	}

	e.mu.Lock()
	if e.checking {
		e.mu.Unlock()
		return
	}
	e.checking = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.checking = false
		e.mu.Unlock()
	}()

	summary, err := e.client.EngagementSummary(ctx)
	if err != nil {
		e.log.Debug("summary poll failed", "error", err)
		return
	}

	// Explicitly awarded badges first, then anything marked obtained.
	// The ledger swallows the overlap between the two sources.
	candidates := append([]badge.Badge{}, summary.NewBadges...)
	candidates = append(candidates, summary.ObtainedBadges()...)
	e.notifyNew(candidates)
}

// Checking reports whether a summary poll is in flight.
func (e *Engine) Checking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checking
}

// Mount installs the engine on the bus and schedules the one-time
// deferred startup check.
func (e *Engine) Mount(ctx context.Context) {
	e.bus.Register(func(badges []badge.Badge) {
		go e.Check(ctx, badges)
	})

	e.mu.Lock()
	e.startupTimer = time.AfterFunc(e.startupDelay, func() {
		e.Check(ctx, nil)
	})
	e.mu.Unlock()
}

// Unmount clears the bus slot and cancels a pending startup check.
func (e *Engine) Unmount() {
	e.bus.Unregister()

	e.mu.Lock()
	if e.startupTimer != nil {
		e.startupTimer.Stop()
		e.startupTimer = nil
	}
	e.mu.Unlock()
}

// notifyNew records and announces every badge not yet in the ledger,
// in the order given. The ledger write happens before the visible
// feedback so that a crash mid-notify can never replay a badge.
func (e *Engine) notifyNew(badges []badge.Badge) {
	for _, b := range badges {
		if b.Code == "" || e.store.Has(b.Code) {
			continue
		}

		e.store.Add(b.Code)
		e.store.AppendHistory(ledger.Entry{
			Code:       b.Code,
			Name:       b.Name,
			Points:     b.Points,
			NotifiedAt: time.Now().UTC(),
		})

		e.notify.Success(formatToast(b), 0)
		e.chime.Play()
		e.log.Info("badge unlocked", "code", b.Code, "name", b.Name, "points", b.Points)
	}
}

func formatToast(b badge.Badge) string {
	icon := b.Icon
	if icon == "" {
		icon = "🏆"
	}
	msg := fmt.Sprintf("%s Badge unlocked: %s", icon, b.Name)
	if b.Points > 0 {
		msg += fmt.Sprintf(" (+%d pts)", b.Points)
	}
	return msg
}
