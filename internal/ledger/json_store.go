package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/civicwatch/herald/internal/logging"
)

const (
	ledgerFile  = "notified_badges.json"
	historyFile = "badge_history.json"

	// historyCap bounds the history file; the ledger itself is unbounded.
	historyCap = 200
)

// JSONStore keeps the ledger as a single JSON array of notified badge codes,
// with the notification history in a sibling file. A corrupt or unreadable
// file reads as empty; a failed write is logged and forgotten.
type JSONStore struct {
	dir string
	log *logging.Logger

	mu      sync.RWMutex
	codes   map[string]struct{}
	history []Entry
}

func newJSONStore(dir string, log *logging.Logger) *JSONStore {
	s := &JSONStore{
		dir:   dir,
		log:   log,
		codes: make(map[string]struct{}),
	}
	s.load()
	return s
}

// NewJSONStore opens (or initialises) a JSON-file ledger rooted at dir.
func NewJSONStore(dir string, log *logging.Logger) *JSONStore {
	if log == nil {
		log = logging.Discard()
	}
	return newJSONStore(dir, log.WithComponent("ledger"))
}

// Path returns the ledger file this store reads and writes. File
// watchers use it to spot writes by other herald instances.
func (s *JSONStore) Path() string { return s.ledgerPath() }

func (s *JSONStore) ledgerPath() string  { return filepath.Join(s.dir, ledgerFile) }
func (s *JSONStore) historyPath() string { return filepath.Join(s.dir, historyFile) }

func (s *JSONStore) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.ledgerPath())
	if err == nil {
		var codes []string
		if jsonErr := json.Unmarshal(data, &codes); jsonErr == nil {
			for _, c := range codes {
				s.codes[c] = struct{}{}
			}
		} else {
			s.log.Debug("ledger file corrupt, starting empty", "error", jsonErr)
		}
	} else if !os.IsNotExist(err) {
		s.log.Debug("ledger file unreadable, starting empty", "error", err)
	}

	data, err = os.ReadFile(s.historyPath())
	if err == nil {
		var history []Entry
		if json.Unmarshal(data, &history) == nil {
			s.history = history
		}
	}
}

// Reload re-reads the ledger file, merging codes written by another herald
// instance. Last writer wins at the file level; the union wins in memory.
func (s *JSONStore) Reload() {
	data, err := os.ReadFile(s.ledgerPath())
	if err != nil {
		return
	}
	var codes []string
	if json.Unmarshal(data, &codes) != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range codes {
		s.codes[c] = struct{}{}
	}
}

func (s *JSONStore) Has(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codes[code]
	return ok
}

func (s *JSONStore) Add(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code]; ok {
		return
	}
	s.codes[code] = struct{}{}
	s.persistLedgerLocked()
}

func (s *JSONStore) LoadAll() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.codes))
	for c := range s.codes {
		out[c] = struct{}{}
	}
	return out
}

func (s *JSONStore) AppendHistory(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, e)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
	data, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		return
	}
	if err := s.writeFile(s.historyPath(), data); err != nil {
		s.log.Debug("history write failed", "error", err)
	}
}

func (s *JSONStore) History(limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastEntries(s.history, limit)
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) persistLedgerLocked() {
	codes := make([]string, 0, len(s.codes))
	for c := range s.codes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	data, err := json.Marshal(codes)
	if err != nil {
		return
	}
	if err := s.writeFile(s.ledgerPath(), data); err != nil {
		s.log.Debug("ledger write failed, deduplication is session-only", "error", err)
	}
}

func (s *JSONStore) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
