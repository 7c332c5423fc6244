package validate

import (
	"regexp"

	"github.com/starford/gebo/internal/models"
)

var tagFormatRe = regexp.MustCompile(`^[a-z0-9-]+$`)

// TagFormat checks that every tag is lowercase kebab-case.
type TagFormat struct{}

func (TagFormat) Name() string        { return "tag-format" }
func (TagFormat) Priority() int       { return 30 }
func (TagFormat) DependsOn() []string { return []string{"structural-metadata"} }

func (TagFormat) Check(node *models.Node, _ Graph) Findings {
	var f Findings
	for _, tag := range node.Tags {
		if !tagFormatRe.MatchString(tag) {
			f.Errorf("Invalid tag format: %s", tag)
		}
	}
	return f
}
