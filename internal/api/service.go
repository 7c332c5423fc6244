package api

import (
	"context"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/reactor"
	"github.com/starford/gebo/internal/validate"
)

// Service exposes the graph query surface to the API layer.
type Service struct {
	store   graph.Store
	orch    *validate.Orchestrator
	reactor *reactor.Reactor
}

// NewService creates a new API service.
func NewService(store graph.Store, orch *validate.Orchestrator, r *reactor.Reactor) *Service {
	return &Service{store: store, orch: orch, reactor: r}
}

// GetNode returns a node by id or apperr.ErrNotFound.
func (s *Service) GetNode(_ context.Context, id string) (*models.Node, error) {
	node, err := s.store.GetNode(id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, apperr.ErrNotFound
	}
	return node, nil
}

// Neighbors returns the computed neighbor sets of a node.
func (s *Service) Neighbors(_ context.Context, id string) (*models.Neighbors, error) {
	node, err := s.store.GetNode(id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, apperr.ErrNotFound
	}

	direct, err := s.store.GetNeighbors(id)
	if err != nil {
		return nil, err
	}

	tagPeerSet := make(map[string]struct{})
	for _, tag := range node.Tags {
		peers, err := s.store.GetTagPeers(id, tag)
		if err != nil {
			return nil, err
		}
		for _, p := range peers {
			tagPeerSet[p] = struct{}{}
		}
	}
	tagPeers := make([]string, 0, len(tagPeerSet))
	for p := range tagPeerSet {
		tagPeers = append(tagPeers, p)
	}

	typePeers, err := s.store.GetTypePeers(id, node.Kind)
	if err != nil {
		return nil, err
	}

	return &models.Neighbors{
		Direct:    nonNilSlice(direct),
		TagPeers:  nonNilSlice(tagPeers),
		TypePeers: nonNilSlice(typePeers),
	}, nil
}

// Affected returns the bounded breadth-first closure of a node.
func (s *Service) Affected(_ context.Context, id string, depth int) ([]string, error) {
	out, err := s.store.GetAffectedNodes(id, depth)
	return nonNilSlice(out), err
}

// Metrics returns aggregate graph figures.
func (s *Service) Metrics(_ context.Context) (models.GraphMetrics, error) {
	return s.store.CalculateGraphMetrics()
}

// Cycles returns the dependency cycles in the requires relation.
func (s *Service) Cycles(_ context.Context) ([][]string, error) {
	return s.store.DetectDependencyCycles()
}

// ValidateBatch runs the pipeline over the requested ids.
func (s *Service) ValidateBatch(ctx context.Context, ids []string) []validate.Result {
	return s.orch.ValidateBatch(ctx, ids)
}

// Restore reinserts the most recent archived snapshot of id.
func (s *Service) Restore(_ context.Context, id string) (bool, error) {
	return s.reactor.RestoreArchivedFile(id)
}

// Cleanup removes archived rows past the retention cutoff.
func (s *Service) Cleanup(_ context.Context, retentionDays int) (int, error) {
	return s.reactor.CleanupOldArchives(retentionDays)
}

// ArchiveStats summarises the archive tables.
func (s *Service) ArchiveStats(_ context.Context) (models.ArchiveStats, error) {
	return s.store.ArchiveStats()
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
