// Package bus carries badge-check requests from anywhere in the
// application to the single mounted notification engine. It is a
// deliberate single-slot design: exactly one engine is mounted at a
// time, so the last registration wins and there is no fan-out.
package bus

import (
	"sync"
	"time"

	"github.com/civicwatch/herald/internal/badge"
)

// deferDelay gives the backend time to finish asynchronous award
// processing before the engine polls it.
const deferDelay = 1500 * time.Millisecond

// Handler runs one badge check. A non-nil badge list short-circuits
// the backend poll.
type Handler func(badges []badge.Badge)

// InvalidateFunc drops cached summary data so the next fetch is fresh.
type InvalidateFunc func()

// Bus is the single-slot dispatch point.
type Bus struct {
	invalidate InvalidateFunc

	mu      sync.Mutex
	handler Handler
	delay   time.Duration
}

// New creates a bus. The invalidate func may be nil.
func New(invalidate InvalidateFunc) *Bus {
	return &Bus{
		invalidate: invalidate,
		delay:      deferDelay,
	}
}

// Register installs the handler, replacing any previous one.
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Unregister clears the handler slot.
func (b *Bus) Unregister() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = nil
}

// Trigger requests a badge check. The summary cache is invalidated
// first in either case. A non-empty badge list is dispatched to the
// handler synchronously. An empty trigger is dispatched after a short
// delay, and consults the handler slot again when the delay elapses so
// an engine mounted in the meantime still receives it. With no handler
// registered the trigger is dropped, never queued.
func (b *Bus) Trigger(badges []badge.Badge) {
	b.mu.Lock()
	handler := b.handler
	delay := b.delay
	b.mu.Unlock()

	if b.invalidate != nil {
		b.invalidate()
	}
	if handler == nil {
		return
	}
	if len(badges) > 0 {
		handler(badges)
		return
	}

	time.AfterFunc(delay, func() {
		b.mu.Lock()
		h := b.handler
		b.mu.Unlock()
		if h != nil {
			h(nil)
		}
	})
}
