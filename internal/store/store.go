// Package store persists reports, escrow entries, submissions,
// notification templates, and evaluation rows in SQLite.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	verr "vaulta/internal/errors"
)

// Store manages the vault database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens the vault database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, verr.WrapStore("open", "", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, verr.WrapStore("open", "", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, verr.WrapStore("migrate", "", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// initSchema creates the database schema.
func (s *Store) initSchema() error {
	schema := `
	-- Full record text, sealed under the owner's key
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		encrypted BLOB,
		salt TEXT NOT NULL DEFAULT '',
		added DATETIME NOT NULL,
		last_edited DATETIME,
		autosaved INTEGER NOT NULL DEFAULT 0,
		contact_name TEXT,
		contact_email TEXT,
		contact_phone TEXT,
		contact_voicemail TEXT,
		contact_notes TEXT,
		submitted DATETIME,
		match_found INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_reports_owner ON reports(owner_id);
	CREATE INDEX IF NOT EXISTS idx_reports_added ON reports(added);

	-- Escrowed matching copies, sealed under a perpetrator identifier
	-- and wrapped with the server pepper
	CREATE TABLE IF NOT EXISTS match_entries (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		contact_email TEXT NOT NULL,
		identifier TEXT,
		added DATETIME NOT NULL,
		seen INTEGER NOT NULL DEFAULT 0,
		encrypted BLOB NOT NULL,
		salt TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_report ON match_entries(report_id);
	CREATE INDEX IF NOT EXISTS idx_entries_pending ON match_entries(seen) WHERE seen = 0;

	-- Submissions delivered to the coordinator
	CREATE TABLE IF NOT EXISTS sent_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL CHECK (kind IN ('full', 'match')),
		sent DATETIME NOT NULL,
		to_address TEXT NOT NULL,
		report_id TEXT REFERENCES reports(id) ON DELETE SET NULL,
		document BLOB
	);
	CREATE TABLE IF NOT EXISTS sent_report_entries (
		sent_id INTEGER NOT NULL REFERENCES sent_reports(id) ON DELETE CASCADE,
		entry_id TEXT NOT NULL REFERENCES match_entries(id) ON DELETE CASCADE,
		PRIMARY KEY (sent_id, entry_id)
	);

	-- Named notification templates
	CREATE TABLE IF NOT EXISTS notifications (
		name TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		body TEXT NOT NULL
	);

	-- Anonymised evaluation log
	CREATE TABLE IF NOT EXISTS eval_rows (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		user_identifier TEXT NOT NULL,
		record_identifier TEXT NOT NULL,
		snapshot BLOB,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_eval_action ON eval_rows(action);
	CREATE INDEX IF NOT EXISTS idx_eval_timestamp ON eval_rows(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}
