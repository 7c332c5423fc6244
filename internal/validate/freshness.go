package validate

import (
	"time"

	"github.com/starford/gebo/internal/models"
)

// Freshness warns when a dashboard has not been updated within the
// configured max age.
type Freshness struct {
	MaxAge time.Duration
	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

// NewFreshness creates the rule with the given max age (default 24h).
func NewFreshness(maxAge time.Duration) *Freshness {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Freshness{MaxAge: maxAge, now: time.Now}
}

func (*Freshness) Name() string        { return "freshness" }
func (*Freshness) Priority() int       { return 50 }
func (*Freshness) DependsOn() []string { return []string{"structural-metadata"} }

func (r *Freshness) Check(node *models.Node, _ Graph) Findings {
	var f Findings
	if node.Kind != models.KindDashboard {
		return f
	}
	val, ok := node.Prop("updated")
	if !ok {
		return f
	}
	updated, err := parseTimestamp(val)
	if err != nil {
		// structural-metadata already reported the bad timestamp.
		return f
	}
	clock := r.now
	if clock == nil {
		clock = time.Now
	}
	age := clock().Sub(updated)
	if age > r.MaxAge {
		f.Warnf("Dashboard is stale: %d hours since last update", int(age.Hours()))
	}
	return f
}
