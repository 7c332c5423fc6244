package graph

import (
	"fmt"
	"sort"
	"strings"
)

// DetectDependencyCycles finds cycles in the requires relation. Each cycle
// is reported once, closed (first id repeated at the end), and rotated so
// the lexicographically smallest id comes first. Traversal is an iterative
// depth-first search with an explicit stack, so arbitrarily deep chains
// cannot exhaust the call stack.
func (db *DB) DetectDependencyCycles() ([][]string, error) {
	rows, err := db.conn.Query(`SELECT id, requires FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("graph: load requires relation: %w", err)
	}
	defer rows.Close()

	adj := make(map[string][]string)
	var ids []string
	for rows.Next() {
		var id, requires string
		if err := rows.Scan(&id, &requires); err != nil {
			return nil, err
		}
		deps := jsonDec[string](requires)
		sort.Strings(deps)
		adj[id] = deps
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(ids))

	type frame struct {
		id   string
		next int
	}

	var cycles [][]string
	reported := make(map[string]struct{})

	for _, start := range ids {
		if color[start] != white {
			continue
		}

		stack := []frame{{id: start}}
		color[start] = gray
		path := []string{start}
		pathIndex := map[string]int{start: 0}

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			neighbors := adj[f.id]

			if f.next < len(neighbors) {
				nb := neighbors[f.next]
				f.next++

				// Requires entries pointing at unknown ids are dangling,
				// not cycle members.
				if _, known := adj[nb]; !known {
					continue
				}

				switch color[nb] {
				case white:
					color[nb] = gray
					stack = append(stack, frame{id: nb})
					pathIndex[nb] = len(path)
					path = append(path, nb)
				case gray:
					cyc := canonicalCycle(path[pathIndex[nb]:])
					key := strings.Join(cyc, " -> ")
					if _, dup := reported[key]; !dup {
						reported[key] = struct{}{}
						cycles = append(cycles, cyc)
					}
				}
			} else {
				color[f.id] = black
				stack = stack[:len(stack)-1]
				delete(pathIndex, f.id)
				path = path[:len(path)-1]
			}
		}
	}

	return cycles, nil
}

// canonicalCycle rotates members so the smallest id leads, then closes the
// cycle by repeating it at the end.
func canonicalCycle(members []string) []string {
	minIdx := 0
	for i, m := range members {
		if m < members[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(members)+1)
	out = append(out, members[minIdx:]...)
	out = append(out, members[:minIdx]...)
	out = append(out, members[minIdx])
	return out
}
