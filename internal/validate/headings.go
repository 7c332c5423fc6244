package validate

import "github.com/starford/gebo/internal/models"

// HeadingHierarchy checks that a document has exactly one top-level
// heading and that no heading level jumps by more than one from its
// predecessor.
type HeadingHierarchy struct{}

func (HeadingHierarchy) Name() string        { return "heading-hierarchy" }
func (HeadingHierarchy) Priority() int       { return 40 }
func (HeadingHierarchy) DependsOn() []string { return nil }

func (HeadingHierarchy) Check(node *models.Node, _ Graph) Findings {
	var f Findings

	topLevel := 0
	for _, h := range node.Headings {
		if h.Level == 1 {
			topLevel++
		}
	}
	if topLevel != 1 {
		f.Errorf("Expected exactly one top-level heading, found %d", topLevel)
	}

	prev := 0
	for _, h := range node.Headings {
		if prev > 0 && h.Level > prev+1 {
			f.Errorf("Heading level jumps from %d to %d: %s", prev, h.Level, h.Text)
		}
		prev = h.Level
	}

	return f
}
