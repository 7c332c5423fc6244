package validate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/models"
)

const (
	defaultWorkers   = 8
	defaultChunkSize = 16

	errorPenalty   = 10
	warningPenalty = 3
)

// Result is the validation outcome for one requested id.
type Result struct {
	ID          string    `json:"id"`
	Score       int       `json:"score"`
	Errors      []string  `json:"errors"`
	Warnings    []string  `json:"warnings"`
	ValidatedAt time.Time `json:"validated_at"`
}

// Orchestrator runs registered rules over nodes in dependency order and
// writes the resulting health back into the graph store.
type Orchestrator struct {
	store     graph.Store
	logger    *slog.Logger
	workers   int
	chunkSize int

	rules []Rule // pipeline order, fixed at registration
}

// NewOrchestrator creates an orchestrator with no rules registered.
// workers bounds concurrent chunk validation; chunkSize controls batch
// partitioning. Non-positive values fall back to defaults.
func NewOrchestrator(store graph.Store, logger *slog.Logger, workers, chunkSize int) *Orchestrator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Orchestrator{
		store:     store,
		logger:    logger,
		workers:   workers,
		chunkSize: chunkSize,
	}
}

// Register adds rules and recomputes the pipeline order. A dependency on an
// unregistered rule or a cycle in the dependsOn relation is a fatal
// configuration error; the previous pipeline is left untouched in that case.
func (o *Orchestrator) Register(rules ...Rule) error {
	candidate := make([]Rule, 0, len(o.rules)+len(rules))
	candidate = append(candidate, o.rules...)
	candidate = append(candidate, rules...)

	ordered, err := sortPipeline(candidate)
	if err != nil {
		return err
	}
	o.rules = ordered
	return nil
}

// Pipeline returns the rule names in execution order.
func (o *Orchestrator) Pipeline() []string {
	names := make([]string, len(o.rules))
	for i, r := range o.rules {
		names[i] = r.Name()
	}
	return names
}

// sortPipeline topologically sorts rules over their dependsOn relation,
// using priority (then name) to order siblings with no relative dependency.
func sortPipeline(rules []Rule) ([]Rule, error) {
	byName := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if _, dup := byName[r.Name()]; dup {
			return nil, fmt.Errorf("validate: rule registered twice: %s", r.Name())
		}
		byName[r.Name()] = r
	}

	indegree := make(map[string]int, len(rules))
	dependents := make(map[string][]string, len(rules))
	for _, r := range rules {
		indegree[r.Name()] += 0
		for _, dep := range r.DependsOn() {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("validate: rule %s depends on unregistered rule %s", r.Name(), dep)
			}
			indegree[r.Name()]++
			dependents[dep] = append(dependents[dep], r.Name())
		}
	}

	ready := make([]string, 0, len(rules))
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}

	less := func(a, b string) bool {
		ra, rb := byName[a], byName[b]
		if ra.Priority() != rb.Priority() {
			return ra.Priority() < rb.Priority()
		}
		return a < b
	}

	var ordered []Rule
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(ordered) != len(rules) {
		var stuck []string
		for name, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("validate: %w: %s", apperr.ErrRuleCycle, strings.Join(stuck, ", "))
	}
	return ordered, nil
}

// ValidateBatch validates the given ids and returns one result per id, in
// input order. Ids are partitioned into fixed-size chunks validated
// concurrently by a bounded worker pool; within one node, rules run
// strictly in pipeline order.
func (o *Orchestrator) ValidateBatch(ctx context.Context, ids []string) []Result {
	results := make([]Result, len(ids))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for start := 0; start < len(ids); start += o.chunkSize {
		end := start + o.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		start, end := start, end
		g.Go(func() error {
			for i := start; i < end; i++ {
				results[i] = o.validateNode(ids[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// validateNode runs the pipeline over one node and writes the refreshed
// health back through the store.
func (o *Orchestrator) validateNode(id string) Result {
	now := time.Now().UTC()

	node, err := o.store.GetNode(id)
	if err != nil {
		return Result{ID: id, Errors: []string{"load failed: " + err.Error()}, Warnings: []string{}, ValidatedAt: now}
	}
	if node == nil {
		return Result{ID: id, Errors: []string{"node not found"}, Warnings: []string{}, ValidatedAt: now}
	}

	allErrors := []string{}
	allWarnings := []string{}
	for _, rule := range o.rules {
		f := o.runRule(rule, node)
		allErrors = append(allErrors, f.Errors...)
		allWarnings = append(allWarnings, f.Warnings...)
	}

	score := 100 - errorPenalty*len(allErrors) - warningPenalty*len(allWarnings)
	if score < 0 {
		score = 0
	}

	health := models.Health{
		Score:           score,
		Errors:          allErrors,
		Warnings:        allWarnings,
		LastValidatedAt: now,
	}
	if err := o.store.UpdateHealth(id, health); err != nil {
		o.logger.Warn("validate: health write-back failed",
			slog.String("id", id), slog.String("error", err.Error()))
	}

	return Result{ID: id, Score: score, Errors: allErrors, Warnings: allWarnings, ValidatedAt: now}
}

// runRule executes one rule, converting a panic into an error finding so a
// single failing rule never blocks the rest of the pipeline.
func (o *Orchestrator) runRule(rule Rule, node *models.Node) (f Findings) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("validate: rule panicked",
				slog.String("rule", rule.Name()),
				slog.String("id", node.ID))
			f = Findings{Errors: []string{fmt.Sprintf("%s failed: %v", rule.Name(), r)}}
		}
	}()
	return rule.Check(node, o.store)
}
