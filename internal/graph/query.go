package graph

import (
	"fmt"
	"sort"

	"github.com/starford/gebo/internal/models"
)

// GetNeighbors returns the ids reachable from id via one outbound or
// inbound wiki edge.
func (db *DB) GetNeighbors(id string) ([]string, error) {
	return db.stringColumn(`
		SELECT target FROM edges WHERE source = ? AND type = ?
		UNION
		SELECT source FROM edges WHERE target = ? AND type = ?
		ORDER BY 1
	`, id, models.EdgeWiki, id, models.EdgeWiki)
}

// GetTagPeers returns the ids of other nodes carrying the given tag.
func (db *DB) GetTagPeers(id, tag string) ([]string, error) {
	// Tags are stored as a JSON string array, so a quoted LIKE pattern
	// matches whole tags only.
	return db.stringColumn(`SELECT id FROM nodes WHERE id != ? AND tags LIKE ? ORDER BY id`,
		id, `%"`+tag+`"%`)
}

// GetTypePeers returns the ids of other nodes of the same kind.
func (db *DB) GetTypePeers(id string, kind models.NodeKind) ([]string, error) {
	return db.stringColumn(`SELECT id FROM nodes WHERE id != ? AND kind = ? ORDER BY id`,
		id, string(kind))
}

// GetAffectedNodes computes the breadth-first closure of id over direct
// neighbors up to depth hops. The origin id is always part of the result.
// A non-positive depth falls back to 2.
func (db *DB) GetAffectedNodes(id string, depth int) ([]string, error) {
	if depth <= 0 {
		depth = 2
	}

	visited := map[string]struct{}{id: {}}
	frontier := []string{id}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, cur := range frontier {
			neighbors, err := db.GetNeighbors(cur)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if _, ok := visited[n]; ok {
					continue
				}
				visited[n] = struct{}{}
				next = append(next, n)
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(visited))
	for n := range visited {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// Backlinks returns all node ids whose outbound wiki edges point at target.
func (db *DB) Backlinks(target string) ([]string, error) {
	return db.stringColumn(`SELECT source FROM edges WHERE target = ? AND type = ? ORDER BY source`,
		target, models.EdgeWiki)
}

// Dependents returns all node ids whose requires set contains id.
func (db *DB) Dependents(id string) ([]string, error) {
	return db.stringColumn(`SELECT id FROM nodes WHERE requires LIKE ? ORDER BY id`,
		`%"`+id+`"%`)
}

// CalculateGraphMetrics computes aggregate figures over the live graph.
// An orphan is a node with no inbound and no outbound wiki edges.
func (db *DB) CalculateGraphMetrics() (models.GraphMetrics, error) {
	var m models.GraphMetrics
	if err := db.conn.QueryRow(`SELECT count(*) FROM nodes`).Scan(&m.TotalNodes); err != nil {
		return m, fmt.Errorf("graph: count nodes: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM edges`).Scan(&m.TotalEdges); err != nil {
		return m, fmt.Errorf("graph: count edges: %w", err)
	}
	err := db.conn.QueryRow(`
		SELECT count(*) FROM nodes
		WHERE id NOT IN (SELECT source FROM edges WHERE type = ?)
		  AND id NOT IN (SELECT target FROM edges WHERE type = ?)
	`, models.EdgeWiki, models.EdgeWiki).Scan(&m.OrphanCount)
	if err != nil {
		return m, fmt.Errorf("graph: count orphans: %w", err)
	}
	if m.TotalNodes > 0 {
		m.OrphanRate = float64(m.OrphanCount) / float64(m.TotalNodes)
	}
	return m, nil
}

// AllChecksums returns the checksum of every live node keyed by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("graph: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// AllAliases returns the alias set of every live node keyed by id.
// Nodes without aliases are omitted.
func (db *DB) AllAliases() (map[string][]string, error) {
	rows, err := db.conn.Query(`SELECT id, aliases FROM nodes WHERE aliases != '[]'`)
	if err != nil {
		return nil, fmt.Errorf("graph: all aliases: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, aliases string
		if err := rows.Scan(&id, &aliases); err != nil {
			return nil, err
		}
		if list := jsonDec[string](aliases); len(list) > 0 {
			out[id] = list
		}
	}
	return out, rows.Err()
}
