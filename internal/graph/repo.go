package graph

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
)

func jsonEnc(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func jsonDec[T any](s string) []T {
	var out []T
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// AddNode upserts a node by id within a transaction and re-materialises
// the edges derived from it (wiki links and the template reference).
// Calling it twice with identical content yields identical stored state.
func (db *DB) AddNode(n *models.Node) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	now := time.Now().UTC()
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := n.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	var lastValidated any
	if !n.Health.LastValidatedAt.IsZero() {
		lastValidated = n.Health.LastValidatedAt.UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO nodes (id, kind, title, checksum, properties, headings, tags,
			aliases, refs, external_links, requires, template_ref,
			health_score, health_errors, health_warnings, last_validated_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind              = excluded.kind,
			title             = excluded.title,
			checksum          = excluded.checksum,
			properties        = excluded.properties,
			headings          = excluded.headings,
			tags              = excluded.tags,
			aliases           = excluded.aliases,
			refs              = excluded.refs,
			external_links    = excluded.external_links,
			requires          = excluded.requires,
			template_ref      = excluded.template_ref,
			health_score      = excluded.health_score,
			health_errors     = excluded.health_errors,
			health_warnings   = excluded.health_warnings,
			last_validated_at = excluded.last_validated_at,
			updated_at        = excluded.updated_at
	`, n.ID, string(n.Kind), n.Title, n.Checksum,
		jsonEnc(n.Properties), jsonEnc(n.Headings), jsonEnc(n.Tags),
		jsonEnc(n.Aliases), jsonEnc(n.Links.Outbound), jsonEnc(n.Links.External),
		jsonEnc(n.Dependencies.Requires), n.Dependencies.TemplateRef,
		n.Health.Score, jsonEnc(n.Health.Errors), jsonEnc(n.Health.Warnings),
		lastValidated, createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("graph: upsert node %s: %w", n.ID, err)
	}

	// Replace derived edges: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM edges WHERE source = ? AND type IN (?, ?)`,
		n.ID, models.EdgeWiki, models.EdgeTemplate); err != nil {
		return fmt.Errorf("graph: clear derived edges: %w", err)
	}
	if len(n.Links.Outbound) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO edges (source, target, type, weight) VALUES (?, ?, ?, 1.0)`)
		if err != nil {
			return fmt.Errorf("graph: prepare edge insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range n.Links.Outbound {
			if _, err := stmt.Exec(n.ID, target, models.EdgeWiki); err != nil {
				return fmt.Errorf("graph: insert edge: %w", err)
			}
		}
	}
	if n.Dependencies.TemplateRef != "" {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO edges (source, target, type, weight) VALUES (?, ?, ?, 1.0)`,
			n.ID, n.Dependencies.TemplateRef, models.EdgeTemplate); err != nil {
			return fmt.Errorf("graph: insert template edge: %w", err)
		}
	}

	return tx.Commit()
}

// GetNode returns a node by id, or nil when absent (not an error).
// Inbound links and reverse dependencies are derived from live state.
func (db *DB) GetNode(id string) (*models.Node, error) {
	row := db.conn.QueryRow(`
		SELECT id, kind, title, checksum, properties, headings, tags, aliases,
		       refs, external_links, requires, template_ref,
		       health_score, health_errors, health_warnings, last_validated_at,
		       created_at, updated_at
		FROM nodes WHERE id = ?
	`, id)

	var (
		n                                  models.Node
		kind                               string
		props, headings, tags, aliases     string
		refs, external, requires           string
		healthErrors, healthWarnings       string
		lastValidated                      sql.NullTime
	)
	err := row.Scan(&n.ID, &kind, &n.Title, &n.Checksum, &props, &headings,
		&tags, &aliases, &refs, &external, &requires, &n.Dependencies.TemplateRef,
		&n.Health.Score, &healthErrors, &healthWarnings, &lastValidated,
		&n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("graph: get node %s: %w", id, err)
	}

	n.Kind = models.NodeKind(kind)
	n.Properties = jsonDec[models.Property](props)
	n.Headings = jsonDec[models.Heading](headings)
	n.Tags = jsonDec[string](tags)
	n.Aliases = jsonDec[string](aliases)
	n.Links.Outbound = jsonDec[string](refs)
	n.Links.External = jsonDec[string](external)
	n.Dependencies.Requires = jsonDec[string](requires)
	n.Health.Errors = jsonDec[string](healthErrors)
	n.Health.Warnings = jsonDec[string](healthWarnings)
	if lastValidated.Valid {
		n.Health.LastValidatedAt = lastValidated.Time
	}

	inbound, err := db.stringColumn(`SELECT source FROM edges WHERE target = ? AND type = ? ORDER BY source`, id, models.EdgeWiki)
	if err != nil {
		return nil, err
	}
	n.Links.Inbound = inbound

	requiredBy, err := db.Dependents(id)
	if err != nil {
		return nil, err
	}
	n.Dependencies.RequiredBy = requiredBy

	return &n, nil
}

// DeleteNode removes a node and every edge incident to it from live storage.
func (db *DB) DeleteNode(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM edges WHERE source = ? OR target = ?`, id, id)
	_, _ = tx.Exec(`DELETE FROM nodes WHERE id = ?`, id)

	return tx.Commit()
}

// AddEdge inserts a single edge. A duplicate (source, target, type) is
// rejected with apperr.ErrConflict.
func (db *DB) AddEdge(e models.Edge) error {
	weight := e.Weight
	if weight == 0 {
		weight = 1.0
	}
	_, err := db.conn.Exec(`INSERT INTO edges (source, target, type, weight, metadata) VALUES (?, ?, ?, ?, ?)`,
		e.Source, e.Target, e.Type, weight, e.Metadata)
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("graph: edge %s->%s (%s): %w", e.Source, e.Target, e.Type, apperr.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("graph: add edge: %w", err)
	}
	return nil
}

// StripOutboundRef removes a reference to removed from holder: the id is
// dropped from the holder's recorded outbound set and the live edges
// between the two are deleted.
func (db *DB) StripOutboundRef(holder, removed string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var refs string
	if err := tx.QueryRow(`SELECT refs FROM nodes WHERE id = ?`, holder).Scan(&refs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("graph: strip ref from %s: %w", holder, err)
	}
	kept := make([]string, 0)
	for _, r := range jsonDec[string](refs) {
		if r != removed {
			kept = append(kept, r)
		}
	}
	if _, err := tx.Exec(`UPDATE nodes SET refs = ? WHERE id = ?`, jsonEnc(kept), holder); err != nil {
		return fmt.Errorf("graph: update refs for %s: %w", holder, err)
	}
	if _, err := tx.Exec(`DELETE FROM edges WHERE source = ? AND target = ?`, holder, removed); err != nil {
		return fmt.Errorf("graph: delete edges %s->%s: %w", holder, removed, err)
	}

	return tx.Commit()
}

// RelinkOutboundRef re-adds a reference from holder to restored and
// recreates the live wiki edge. Both operations are idempotent.
func (db *DB) RelinkOutboundRef(holder, restored string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var refs string
	if err := tx.QueryRow(`SELECT refs FROM nodes WHERE id = ?`, holder).Scan(&refs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("graph: relink %s: %w", holder, err)
	}
	current := jsonDec[string](refs)
	found := false
	for _, r := range current {
		if r == restored {
			found = true
			break
		}
	}
	if !found {
		current = append(current, restored)
		if _, err := tx.Exec(`UPDATE nodes SET refs = ? WHERE id = ?`, jsonEnc(current), holder); err != nil {
			return fmt.Errorf("graph: update refs for %s: %w", holder, err)
		}
	}
	if _, err := tx.Exec(`INSERT OR IGNORE INTO edges (source, target, type, weight) VALUES (?, ?, ?, 1.0)`,
		holder, restored, models.EdgeWiki); err != nil {
		return fmt.Errorf("graph: recreate edge %s->%s: %w", holder, restored, err)
	}

	return tx.Commit()
}

// UpdateHealth writes a validation outcome back onto a node row.
func (db *DB) UpdateHealth(id string, h models.Health) error {
	var lastValidated any
	if !h.LastValidatedAt.IsZero() {
		lastValidated = h.LastValidatedAt.UTC()
	}
	_, err := db.conn.Exec(`
		UPDATE nodes
		SET health_score = ?, health_errors = ?, health_warnings = ?, last_validated_at = ?
		WHERE id = ?
	`, h.Score, jsonEnc(h.Errors), jsonEnc(h.Warnings), lastValidated, id)
	if err != nil {
		return fmt.Errorf("graph: update health for %s: %w", id, err)
	}
	return nil
}

// RemoveDependencyRef strips removed from the node's requires set, applies
// the fixed dependency-loss penalty, and records a warning.
func (db *DB) RemoveDependencyRef(id, removed string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var requires, warnings string
	var score int
	err = tx.QueryRow(`SELECT requires, health_warnings, health_score FROM nodes WHERE id = ?`, id).
		Scan(&requires, &warnings, &score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("graph: load dependent %s: %w", id, err)
	}

	kept := make([]string, 0)
	for _, r := range jsonDec[string](requires) {
		if r != removed {
			kept = append(kept, r)
		}
	}
	score -= 10
	if score < 0 {
		score = 0
	}
	warn := append(jsonDec[string](warnings), "Missing dependency: "+removed)

	_, err = tx.Exec(`UPDATE nodes SET requires = ?, health_score = ?, health_warnings = ? WHERE id = ?`,
		jsonEnc(kept), score, jsonEnc(warn), id)
	if err != nil {
		return fmt.Errorf("graph: update dependent %s: %w", id, err)
	}

	return tx.Commit()
}

// stringColumn runs a single-column query and collects the values.
func (db *DB) stringColumn(query string, args ...any) ([]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("graph: query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
