package validate

import "github.com/starford/gebo/internal/models"

// LinkIntegrity checks that every outbound link resolves to a live node
// and that resolved links are reciprocated in the target's inbound set.
// Missing reciprocity is a warning, not an error: one-way references
// (templates, for instance) are legitimate.
type LinkIntegrity struct{}

func (LinkIntegrity) Name() string        { return "link-integrity" }
func (LinkIntegrity) Priority() int       { return 20 }
func (LinkIntegrity) DependsOn() []string { return []string{"structural-metadata"} }

func (LinkIntegrity) Check(node *models.Node, g Graph) Findings {
	var f Findings
	for _, target := range node.Links.Outbound {
		resolved, err := g.GetNode(target)
		if err != nil {
			f.Errorf("link-integrity failed: %v", err)
			continue
		}
		if resolved == nil {
			f.Errorf("Broken link: %s", target)
			continue
		}
		reciprocated := false
		for _, in := range resolved.Links.Inbound {
			if in == node.ID {
				reciprocated = true
				break
			}
		}
		if !reciprocated {
			f.Warnf("Asymmetric link: %s", target)
		}
	}
	return f
}
