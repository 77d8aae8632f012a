// Package sqlite persists the agent registry and reputation records in
// a single SQLite database. Both stores degrade to typed errors
// (registry.ErrUnavailable, reputation.ErrUnavailable) on driver
// faults so callers can distinguish "not found" from "store down".
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS agents (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	provider     TEXT NOT NULL,
	version      TEXT NOT NULL DEFAULT '',
	capabilities TEXT NOT NULL DEFAULT '[]',
	active       INTEGER NOT NULL DEFAULT 1,
	secret_hash  TEXT NOT NULL,
	permissions  TEXT NOT NULL DEFAULT '["read"]'
);
CREATE INDEX IF NOT EXISTS idx_agents_provider_name ON agents(provider, name);

CREATE TABLE IF NOT EXISTS reputation (
	agent_id TEXT PRIMARY KEY,
	score    INTEGER NOT NULL DEFAULT 0
);
`

// DB wraps the shared database handle.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent request handling.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Agents returns the registry store view of the database.
func (d *DB) Agents() *AgentRepo {
	return &AgentRepo{db: d.db}
}

// Reputation returns the reputation store view of the database.
func (d *DB) Reputation() *ReputationRepo {
	return &ReputationRepo{db: d.db}
}
