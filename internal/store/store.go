// Package store is the persistence façade: a single SQLite connection
// behind a mutex, fronting embedded migrations and the meeting/transcript
// /translation/note CRUD the rest of the pipeline needs.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store wraps one SQLite connection. All operations serialize through mu
// since the pipeline's goroutines (STT, translation, notes) all write
// concurrently and database/sql's own connection pooling would otherwise
// interleave writes against a single-writer SQLite file.
type Store struct {
	mu sync.Mutex
	db *sql.DB

	activeMu sync.RWMutex
	activeID int64
	isActive bool
}

// Open connects to the SQLite database at path, enables WAL journaling and
// foreign keys, and applies any pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	// SQLite only allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under the pipeline's concurrent writers.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	current := -1
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, err := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if err != nil {
			return fmt.Errorf("read migration %d: %w", i, err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", i, entries[i].Name(), err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i); err != nil {
			return fmt.Errorf("record migration %d: %w", i, err)
		}
	}
	return nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ActiveMeetingID reports the currently recording meeting, if any. Backed
// by an in-memory cell rather than a query since the STT and translation
// goroutines consult it on every segment.
func (s *Store) ActiveMeetingID() (int64, bool) {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	return s.activeID, s.isActive
}

// SetActiveMeeting marks id as the active meeting.
func (s *Store) SetActiveMeeting(id int64) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.activeID = id
	s.isActive = true
}

// ClearActiveMeeting marks no meeting as active.
func (s *Store) ClearActiveMeeting() {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.isActive = false
}
