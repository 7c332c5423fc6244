package graph

import "github.com/starford/gebo/internal/models"

// Store defines the graph persistence contract. Consumers should depend on
// this interface rather than the concrete *DB type to facilitate testing
// with mocks.
//
// Read operations never fail for "not found": GetNode returns nil and set
// queries return empty results. Writes that violate a uniqueness
// constraint are rejected with apperr.ErrConflict.
type Store interface {
	AddNode(n *models.Node) error
	GetNode(id string) (*models.Node, error)
	DeleteNode(id string) error

	AddEdge(e models.Edge) error
	StripOutboundRef(holder, removed string) error
	RelinkOutboundRef(holder, restored string) error

	GetNeighbors(id string) ([]string, error)
	GetTagPeers(id, tag string) ([]string, error)
	GetTypePeers(id string, kind models.NodeKind) ([]string, error)
	GetAffectedNodes(id string, depth int) ([]string, error)
	Backlinks(target string) ([]string, error)
	Dependents(id string) ([]string, error)
	CalculateGraphMetrics() (models.GraphMetrics, error)
	DetectDependencyCycles() ([][]string, error)

	UpdateHealth(id string, h models.Health) error
	RemoveDependencyRef(id, removed string) error

	AllChecksums() (map[string]string, error)
	AllAliases() (map[string][]string, error)

	ArchiveNode(id, reason string) error
	RestoreArchived(id string) (*models.Node, error)
	CleanupOldArchives(retentionDays int) (int, error)
	ArchiveStats() (models.ArchiveStats, error)

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
