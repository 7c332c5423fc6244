package validate

import (
	"sort"
	"strings"

	"github.com/starford/gebo/internal/models"
)

const (
	sharedTagThreshold = 3
	maxSuggestedPeers  = 3
)

// NeighborConvergence warns when a node shares several tags with peers
// but never links out to any of them.
type NeighborConvergence struct{}

func (NeighborConvergence) Name() string  { return "neighbor-convergence" }
func (NeighborConvergence) Priority() int { return 60 }
func (NeighborConvergence) DependsOn() []string {
	return []string{"link-integrity", "tag-format"}
}

func (NeighborConvergence) Check(node *models.Node, g Graph) Findings {
	var f Findings
	if len(node.Links.Outbound) > 0 {
		return f
	}

	shared := make(map[string]int)
	for _, tag := range node.Tags {
		peers, err := g.GetTagPeers(node.ID, tag)
		if err != nil {
			continue
		}
		for _, p := range peers {
			shared[p]++
		}
	}

	var candidates []string
	for peer, count := range shared {
		if count >= sharedTagThreshold {
			candidates = append(candidates, peer)
		}
	}
	if len(candidates) == 0 {
		return f
	}

	sort.Slice(candidates, func(i, j int) bool {
		if shared[candidates[i]] != shared[candidates[j]] {
			return shared[candidates[i]] > shared[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > maxSuggestedPeers {
		candidates = candidates[:maxSuggestedPeers]
	}

	f.Warnf("No outbound links despite shared tags; consider linking: %s",
		strings.Join(candidates, ", "))
	return f
}
