// Package ledger persists the set of badge codes already surfaced to the
// user, so no badge ever toasts or chimes twice across sessions. The ledger
// only grows; it is never pruned here.
//
// Every operation is failure-tolerant by contract: a store that cannot read
// reports an empty set, a store that cannot write keeps the code in memory
// for the rest of the session, and nothing ever propagates an error to the
// notification path.
package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/civicwatch/herald/internal/logging"
)

// Supported storage engines.
const (
	EngineSQLite = "sqlite"
	EngineJSON   = "json"
)

// Entry is one row of the notification history: a badge that was surfaced,
// and when.
type Entry struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Points     int       `json:"points,omitempty"`
	NotifiedAt time.Time `json:"notifiedAt"`
}

// Store is the persistent dedup ledger. Has/Add/LoadAll never fail; storage
// problems degrade to session-only deduplication.
type Store interface {
	// Has reports whether the code was already surfaced.
	Has(code string) bool
	// Add marks the code as surfaced. Idempotent.
	Add(code string)
	// LoadAll returns the full set of surfaced codes.
	LoadAll() map[string]struct{}
	// AppendHistory records a surfaced badge for the history view. Best effort.
	AppendHistory(e Entry)
	// History returns up to limit entries, newest first.
	History(limit int) []Entry
	Close() error
}

// Open returns a store for the requested engine rooted at dir. It never
// fails: when the engine cannot be initialised the ledger degrades to an
// in-memory session store, matching the contract that a broken storage
// layer must not break notifications.
func Open(engine, dir string, log *logging.Logger) Store {
	if log == nil {
		log = logging.Discard()
	}
	log = log.WithComponent("ledger")

	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineSQLite:
		s, err := newSQLiteStore(dir, log)
		if err == nil {
			return s
		}
		log.Warn("sqlite ledger unavailable, deduplication is session-only", "error", err)
	case EngineJSON:
		return newJSONStore(dir, log)
	default:
		log.Warn("unknown ledger engine, deduplication is session-only", "engine", engine)
	}
	return NewMemoryStore()
}

// MemoryStore keeps the ledger for the lifetime of the process only. It is
// the degraded mode for broken storage and the fixture of choice in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	codes   map[string]struct{}
	history []Entry
}

// NewMemoryStore returns an empty session-only ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]struct{})}
}

func (m *MemoryStore) Has(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.codes[code]
	return ok
}

func (m *MemoryStore) Add(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code] = struct{}{}
}

func (m *MemoryStore) LoadAll() map[string]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]struct{}, len(m.codes))
	for c := range m.codes {
		out[c] = struct{}{}
	}
	return out
}

func (m *MemoryStore) AppendHistory(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, e)
}

func (m *MemoryStore) History(limit int) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastEntries(m.history, limit)
}

func (m *MemoryStore) Close() error { return nil }

// lastEntries returns up to limit entries from the tail of chronological
// history, newest first.
func lastEntries(history []Entry, limit int) []Entry {
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}
	out := make([]Entry, 0, limit)
	for i := len(history) - 1; i >= len(history)-limit; i-- {
		out = append(out, history[i])
	}
	return out
}
