// Package graph provides the SQLite-backed graph store: live nodes and
// edges, append-only archives, and the query primitives the validation
// pipeline and change reactor are built on.
package graph

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	id                TEXT PRIMARY KEY,
	kind              TEXT NOT NULL DEFAULT 'note',
	title             TEXT NOT NULL DEFAULT '',
	checksum          TEXT NOT NULL DEFAULT '',
	properties        TEXT NOT NULL DEFAULT '[]',
	headings          TEXT NOT NULL DEFAULT '[]',
	tags              TEXT NOT NULL DEFAULT '[]',
	aliases           TEXT NOT NULL DEFAULT '[]',
	refs              TEXT NOT NULL DEFAULT '[]',
	external_links    TEXT NOT NULL DEFAULT '[]',
	requires          TEXT NOT NULL DEFAULT '[]',
	template_ref      TEXT NOT NULL DEFAULT '',
	health_score      INTEGER NOT NULL DEFAULT 100,
	health_errors     TEXT NOT NULL DEFAULT '[]',
	health_warnings   TEXT NOT NULL DEFAULT '[]',
	last_validated_at DATETIME,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS edges (
	source   TEXT NOT NULL,
	target   TEXT NOT NULL,
	type     TEXT NOT NULL DEFAULT 'wiki',
	weight   REAL NOT NULL DEFAULT 1.0,
	metadata TEXT NOT NULL DEFAULT '',
	UNIQUE(source, target, type)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);

CREATE TABLE IF NOT EXISTS archived_nodes (
	original_id    TEXT NOT NULL,
	archived_at    DATETIME NOT NULL,
	archive_reason TEXT NOT NULL DEFAULT 'deleted',
	snapshot       TEXT NOT NULL,
	PRIMARY KEY(original_id, archived_at)
);

CREATE TABLE IF NOT EXISTS archived_edges (
	source         TEXT NOT NULL,
	target         TEXT NOT NULL,
	type           TEXT NOT NULL DEFAULT 'wiki',
	weight         REAL NOT NULL DEFAULT 1.0,
	metadata       TEXT NOT NULL DEFAULT '',
	archived_at    DATETIME NOT NULL,
	archive_reason TEXT NOT NULL DEFAULT 'deleted'
);

CREATE INDEX IF NOT EXISTS idx_archived_edges_source ON archived_edges(source);
CREATE INDEX IF NOT EXISTS idx_archived_edges_target ON archived_edges(target);
`

// DB wraps a sql.DB with graph-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("graph: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graph: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graph: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
