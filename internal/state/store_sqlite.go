package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS balances (
	resource TEXT PRIMARY KEY,
	balance  REAL NOT NULL DEFAULT 0,
	lifetime REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS generators (
	id                   TEXT PRIMARY KEY,
	level                INTEGER NOT NULL DEFAULT 0,
	owned                INTEGER NOT NULL DEFAULT 0,
	automated            INTEGER NOT NULL DEFAULT 0,
	automation_purchased INTEGER NOT NULL DEFAULT 0,
	enabled              INTEGER NOT NULL DEFAULT 1
);
`

// SQLiteStore persists the session snapshot in a single sqlite database.
// Writes go straight to the database, so RequestSave is a no-op.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) session.db under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, "session.db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Balances() (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT resource, balance FROM balances`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var id string
		var bal float64
		if err := rows.Scan(&id, &bal); err != nil {
			return nil, err
		}
		out[id] = bal
	}
	return out, rows.Err()
}

func (s *SQLiteStore) WriteBalance(resourceID string, balance float64) error {
	_, err := s.db.Exec(`
		INSERT INTO balances (resource, balance) VALUES (?, ?)
		ON CONFLICT(resource) DO UPDATE SET balance = excluded.balance`,
		resourceID, balance)
	return err
}

func (s *SQLiteStore) Lifetime(resourceID string) (float64, error) {
	var v float64
	err := s.db.QueryRow(`SELECT lifetime FROM balances WHERE resource = ?`, resourceID).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}

func (s *SQLiteStore) AddLifetime(resourceID string, delta float64) error {
	_, err := s.db.Exec(`
		INSERT INTO balances (resource, lifetime) VALUES (?, ?)
		ON CONFLICT(resource) DO UPDATE SET lifetime = balances.lifetime + excluded.lifetime`,
		resourceID, delta)
	return err
}

func (s *SQLiteStore) Generators() ([]GeneratorState, error) {
	rows, err := s.db.Query(`
		SELECT id, level, owned, automated, automation_purchased, enabled
		FROM generators ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GeneratorState
	for rows.Next() {
		var gs GeneratorState
		if err := rows.Scan(&gs.ID, &gs.Level, &gs.Owned, &gs.Automated, &gs.AutomationPurchased, &gs.Enabled); err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) WriteGenerator(gs GeneratorState) error {
	_, err := s.db.Exec(`
		INSERT INTO generators (id, level, owned, automated, automation_purchased, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			level = excluded.level,
			owned = excluded.owned,
			automated = excluded.automated,
			automation_purchased = excluded.automation_purchased,
			enabled = excluded.enabled`,
		gs.ID, gs.Level, gs.Owned, gs.Automated, gs.AutomationPurchased, gs.Enabled)
	return err
}

func (s *SQLiteStore) LastSeen() (time.Time, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'last_seen'`).Scan(&v)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last_seen: %w", err)
	}
	return t, true, nil
}

func (s *SQLiteStore) TouchSeen(t time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO meta (key, value) VALUES ('last_seen', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		t.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) RequestSave() {}

func (s *SQLiteStore) Close() error { return s.db.Close() }
