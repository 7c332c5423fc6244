package validate

import (
	"time"

	"github.com/starford/gebo/internal/models"
)

var requiredProperties = []string{"type", "title", "tags", "created", "updated", "author"}

// timestampLayouts are the accepted ISO-like forms for created/updated.
var timestampLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// StructuralMetadata checks that required frontmatter properties are
// present and that created/updated parse as timestamps.
type StructuralMetadata struct{}

func (StructuralMetadata) Name() string        { return "structural-metadata" }
func (StructuralMetadata) Priority() int       { return 10 }
func (StructuralMetadata) DependsOn() []string { return nil }

func (StructuralMetadata) Check(node *models.Node, _ Graph) Findings {
	var f Findings
	for _, key := range requiredProperties {
		val, ok := node.Prop(key)
		if !ok || val == "" {
			f.Errorf("Missing required property: %s", key)
			continue
		}
		if key == "created" || key == "updated" {
			if _, err := parseTimestamp(val); err != nil {
				f.Errorf("Invalid timestamp for %s: %s", key, val)
			}
		}
	}
	return f
}

func parseTimestamp(val string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, val)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
