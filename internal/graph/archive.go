package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

// ArchiveNode snapshots a node and its incident edges into the archive
// tables. The live rows are untouched; deletion is a separate step so a
// failed archive never loses data.
func (db *DB) ArchiveNode(id, reason string) error {
	node, err := db.GetNode(id)
	if err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("graph: archive %s: %w", id, apperr.ErrNotFound)
	}

	rows, err := db.conn.Query(`SELECT source, target, type, weight, metadata FROM edges WHERE source = ? OR target = ?`, id, id)
	if err != nil {
		return fmt.Errorf("graph: load incident edges for %s: %w", id, err)
	}
	var edges []models.Edge
	for rows.Next() {
		var e models.Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Type, &e.Weight, &e.Metadata); err != nil {
			rows.Close()
			return err
		}
		edges = append(edges, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	snapshot, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("graph: marshal snapshot for %s: %w", id, err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	archivedAt := time.Now().UTC()
	if _, err := tx.Exec(`INSERT INTO archived_nodes (original_id, archived_at, archive_reason, snapshot) VALUES (?, ?, ?, ?)`,
		id, archivedAt, reason, string(snapshot)); err != nil {
		return fmt.Errorf("graph: archive node %s: %w", id, err)
	}
	for _, e := range edges {
		if _, err := tx.Exec(`INSERT INTO archived_edges (source, target, type, weight, metadata, archived_at, archive_reason) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.Source, e.Target, e.Type, e.Weight, e.Metadata, archivedAt, reason); err != nil {
			return fmt.Errorf("graph: archive edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	return tx.Commit()
}

// RestoreArchived reinserts the most recent archived snapshot of id and
// its archived edges into live storage. Edge reinsertion is idempotent;
// existing edges are left untouched. Returns nil (not an error) when no
// archive exists for the id.
func (db *DB) RestoreArchived(id string) (*models.Node, error) {
	var snapshot string
	var archivedAt time.Time
	err := db.conn.QueryRow(`
		SELECT snapshot, archived_at FROM archived_nodes
		WHERE original_id = ?
		ORDER BY archived_at DESC
		LIMIT 1
	`, id).Scan(&snapshot, &archivedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("graph: load archive for %s: %w", id, err)
	}

	var node models.Node
	if err := json.Unmarshal([]byte(snapshot), &node); err != nil {
		return nil, fmt.Errorf("graph: decode snapshot for %s: %w", id, err)
	}

	if err := db.AddNode(&node); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
		SELECT source, target, type, weight, metadata FROM archived_edges
		WHERE archived_at = ? AND (source = ? OR target = ?)
	`, archivedAt, id, id)
	if err != nil {
		return nil, fmt.Errorf("graph: load archived edges for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Type, &e.Weight, &e.Metadata); err != nil {
			return nil, err
		}
		if _, err := db.conn.Exec(`INSERT OR IGNORE INTO edges (source, target, type, weight, metadata) VALUES (?, ?, ?, ?, ?)`,
			e.Source, e.Target, e.Type, e.Weight, e.Metadata); err != nil {
			return nil, fmt.Errorf("graph: restore edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &node, nil
}

// CleanupOldArchives deletes archived node and edge rows older than the
// retention cutoff whose reason is "deleted". Returns the number of rows
// removed.
func (db *DB) CleanupOldArchives(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM archived_nodes WHERE archived_at < ? AND archive_reason = 'deleted'`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("graph: cleanup archived nodes: %w", err)
	}
	nodeRows, _ := res.RowsAffected()

	res, err = tx.Exec(`DELETE FROM archived_edges WHERE archived_at < ? AND archive_reason = 'deleted'`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("graph: cleanup archived edges: %w", err)
	}
	edgeRows, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(nodeRows + edgeRows), nil
}

// ArchiveStats summarises the archive tables.
func (db *DB) ArchiveStats() (models.ArchiveStats, error) {
	var s models.ArchiveStats
	if err := db.conn.QueryRow(`SELECT count(*) FROM archived_nodes`).Scan(&s.Nodes); err != nil {
		return s, fmt.Errorf("graph: count archived nodes: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM archived_edges`).Scan(&s.Edges); err != nil {
		return s, fmt.Errorf("graph: count archived edges: %w", err)
	}
	var oldest sql.NullTime
	if err := db.conn.QueryRow(`SELECT min(archived_at) FROM archived_nodes`).Scan(&oldest); err == nil && oldest.Valid {
		s.Oldest = oldest.Time
	}
	return s, nil
}
