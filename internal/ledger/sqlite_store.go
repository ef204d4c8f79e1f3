package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/civicwatch/herald/internal/logging"
)

const dbFile = "herald.db"

// SQLiteStore backs the ledger with a local SQLite database. Unlike the JSON
// engine it also keeps an unbounded notification history.
type SQLiteStore struct {
	db  *sql.DB
	log *logging.Logger
}

func newSQLiteStore(dir string, log *logging.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// NewSQLiteStore opens (or initialises) a SQLite ledger rooted at dir.
func NewSQLiteStore(dir string, log *logging.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logging.Discard()
	}
	return newSQLiteStore(dir, log.WithComponent("ledger"))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS notified_badges (
			code TEXT PRIMARY KEY,
			notified_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS badge_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL,
			name TEXT,
			points INTEGER DEFAULT 0,
			notified_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Has(code string) bool {
	var n int
	err := s.db.QueryRow("SELECT COUNT(1) FROM notified_badges WHERE code = ?", code).Scan(&n)
	if err != nil {
		s.log.Debug("ledger read failed", "error", err)
		return false
	}
	return n > 0
}

func (s *SQLiteStore) Add(code string) {
	_, err := s.db.Exec("INSERT OR IGNORE INTO notified_badges (code) VALUES (?)", code)
	if err != nil {
		s.log.Debug("ledger write failed, deduplication is session-only", "error", err)
	}
}

func (s *SQLiteStore) LoadAll() map[string]struct{} {
	out := make(map[string]struct{})
	rows, err := s.db.Query("SELECT code FROM notified_badges")
	if err != nil {
		s.log.Debug("ledger read failed", "error", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if rows.Scan(&code) == nil {
			out[code] = struct{}{}
		}
	}
	return out
}

func (s *SQLiteStore) AppendHistory(e Entry) {
	when := e.NotifiedAt
	if when.IsZero() {
		when = time.Now().UTC()
	}
	_, err := s.db.Exec(
		"INSERT INTO badge_history (code, name, points, notified_at) VALUES (?, ?, ?, ?)",
		e.Code, e.Name, e.Points, when,
	)
	if err != nil {
		s.log.Debug("history write failed", "error", err)
	}
}

func (s *SQLiteStore) History(limit int) []Entry {
	if limit <= 0 {
		limit = historyCap
	}
	rows, err := s.db.Query(
		"SELECT code, name, points, notified_at FROM badge_history ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		s.log.Debug("history read failed", "error", err)
		return nil
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if rows.Scan(&e.Code, &e.Name, &e.Points, &e.NotifiedAt) == nil {
			entries = append(entries, e)
		}
	}
	return entries
}
