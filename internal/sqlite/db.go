// Package sqlite implements the persistence interfaces over SQLite.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection pool.
type DB struct {
	*sqlx.DB
}

// New opens (or creates) a SQLite database and applies the schema.
func New(dataSourceName string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dataSourceName+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS civilizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		ideology TEXT NOT NULL DEFAULT '',
		gold INTEGER NOT NULL,
		wood INTEGER NOT NULL,
		stone INTEGER NOT NULL,
		food INTEGER NOT NULL,
		territory INTEGER NOT NULL,
		soldiers INTEGER NOT NULL,
		spies INTEGER NOT NULL,
		tech INTEGER NOT NULL,
		items_json TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS relationships (
		key TEXT PRIMARY KEY,
		a TEXT NOT NULL,
		b TEXT NOT NULL,
		state TEXT NOT NULL CHECK(state IN ('NEUTRAL', 'ALLIED', 'AT_WAR')),
		pending_json TEXT,
		changed_at TIMESTAMP,
		war_log_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS cooldowns (
		civ_id TEXT NOT NULL,
		action TEXT NOT NULL,
		last_used TIMESTAMP NOT NULL,
		PRIMARY KEY (civ_id, action)
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		scope TEXT NOT NULL,
		civ_id TEXT,
		at TIMESTAMP NOT NULL,
		effect_json TEXT NOT NULL,
		summary TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);
	CREATE INDEX IF NOT EXISTS idx_events_civ ON events(civ_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_state ON relationships(state);
	`
	_, err := db.Exec(schema)
	return err
}
