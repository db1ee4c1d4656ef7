package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate signature")
	ErrWrite     = errors.New("store write failed")
	ErrRead      = errors.New("store read failed")
)

// Storage handles all database operations. The database runs in WAL mode so
// the ingestion writer never blocks matching readers.
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS surebets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			found_at INTEGER NOT NULL,
			starts_at TEXT,
			event TEXT NOT NULL,
			league TEXT NOT NULL,
			profit REAL NOT NULL,
			legs_json TEXT NOT NULL,
			signature TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS subscribers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL UNIQUE,
			min_profit REAL NOT NULL DEFAULT 1.0,
			bookmakers TEXT NOT NULL DEFAULT '[]',
			sports TEXT NOT NULL DEFAULT '[]',
			leagues TEXT NOT NULL DEFAULT '{}',
			active INTEGER NOT NULL DEFAULT 1,
			expiration INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS subscriber_bets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			surebet_id INTEGER NOT NULL,
			profit_percent REAL NOT NULL,
			stake REAL NOT NULL,
			realized_profit REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriber_bets_user_id ON subscriber_bets(user_id)`,

		`CREATE TABLE IF NOT EXISTS subscription_payments (
			event_id TEXT PRIMARY KEY,
			user_id INTEGER,
			amount REAL,
			sender_address TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS pending_payments (
			user_id INTEGER PRIMARY KEY,
			unique_amount REAL NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func writeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
}

func readErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRead, err)
}
