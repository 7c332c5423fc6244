// Package validate implements the dependency-ordered validation pipeline
// that keeps per-node health scores current.
package validate

import (
	"fmt"

	"github.com/starford/gebo/internal/models"
)

// Graph is the read surface rules may query during a check. *graph.DB
// satisfies it.
type Graph interface {
	GetNode(id string) (*models.Node, error)
	GetTagPeers(id, tag string) ([]string, error)
	Backlinks(target string) ([]string, error)
	AllAliases() (map[string][]string, error)
}

// Findings collects the outcome of one rule for one node.
type Findings struct {
	Errors   []string
	Warnings []string
}

// Errorf appends a formatted error finding.
func (f *Findings) Errorf(format string, args ...any) {
	f.Errors = append(f.Errors, fmt.Sprintf(format, args...))
}

// Warnf appends a formatted warning finding.
func (f *Findings) Warnf(format string, args ...any) {
	f.Warnings = append(f.Warnings, fmt.Sprintf(format, args...))
}

// Rule is the validation capability. Implementations must be pure: Check
// may read the node and query the graph but never mutates either.
//
// DependsOn names rules that must run earlier in the pipeline; Priority
// breaks ties between rules with no relative dependency (lower runs first).
type Rule interface {
	Name() string
	Priority() int
	DependsOn() []string
	Check(node *models.Node, g Graph) Findings
}
