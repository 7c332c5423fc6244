// Package reactor consumes vault change events and keeps the graph
// consistent: debounced incremental re-validation for edits, and
// archive/cascade/backlink surgery for deletions.
package reactor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/parser"
	"github.com/starford/gebo/internal/storage"
	"github.com/starford/gebo/internal/validate"
)

// ChangeKind classifies a file change event.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeModify ChangeKind = "change"
	ChangeRemove ChangeKind = "remove"
)

// ChangeEvent is one file change delivered by the event source. Duplicate
// deliveries are expected; events for the same path collapse to the most
// recent one while buffering.
type ChangeEvent struct {
	Kind      ChangeKind
	Path      string
	Timestamp time.Time
}

// Notifier receives maintenance notifications. Delivery is fire-and-forget.
type Notifier interface {
	FileDeleted(id string, affected []string)
	ValidationComplete(ids []string)
}

// Validator is the slice of the orchestrator the reactor needs.
type Validator interface {
	ValidateBatch(ctx context.Context, ids []string) []validate.Result
}

// Reactor buffers change events and drains them after a debounce window.
// Exactly one drain runs at a time; bursts arriving mid-drain accumulate
// into the next one. Administrative operations (restore, cleanup) are
// serialized against drains.
type Reactor struct {
	store    graph.Store
	vault    storage.Provider
	orch     Validator
	notifier Notifier
	logger   *slog.Logger

	debounce      time.Duration
	affectedDepth int

	mu       sync.Mutex
	pending  map[string]ChangeEvent
	timer    *time.Timer
	draining bool
	queued   bool
	closed   bool

	// opMu serializes drain processing with administrative operations.
	opMu sync.Mutex

	drains sync.WaitGroup
}

// New creates a reactor. debounce and affectedDepth fall back to 500ms
// and 2 when non-positive.
func New(store graph.Store, vault storage.Provider, orch Validator, notifier Notifier, logger *slog.Logger, debounce time.Duration, affectedDepth int) *Reactor {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if affectedDepth <= 0 {
		affectedDepth = 2
	}
	return &Reactor{
		store:         store,
		vault:         vault,
		orch:          orch,
		notifier:      notifier,
		logger:        logger,
		debounce:      debounce,
		affectedDepth: affectedDepth,
		pending:       make(map[string]ChangeEvent),
	}
}

// Enqueue buffers a change event. Events for the same path collapse
// last-write-wins by timestamp.
func (r *Reactor) Enqueue(ev ChangeEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	if prev, ok := r.pending[ev.Path]; !ok || !ev.Timestamp.Before(prev.Timestamp) {
		r.pending[ev.Path] = ev
	}

	if r.draining {
		r.queued = true
		return
	}
	r.scheduleDrainLocked()
}

// scheduleDrainLocked (re)arms the debounce timer. Caller holds r.mu.
func (r *Reactor) scheduleDrainLocked() {
	if r.timer == nil {
		r.timer = time.AfterFunc(r.debounce, r.drain)
	} else {
		r.timer.Reset(r.debounce)
	}
}

// drain moves the buffered events out and processes them. A burst that
// lands while processing schedules exactly one follow-up drain.
func (r *Reactor) drain() {
	r.mu.Lock()
	if r.closed || r.draining {
		r.queued = !r.closed
		r.mu.Unlock()
		return
	}
	r.draining = true
	batch := r.pending
	r.pending = make(map[string]ChangeEvent)
	r.drains.Add(1)
	r.mu.Unlock()

	r.process(batch)

	r.mu.Lock()
	r.draining = false
	r.drains.Done()
	if (r.queued || len(r.pending) > 0) && !r.closed {
		r.queued = false
		r.scheduleDrainLocked()
	}
	r.mu.Unlock()
}

// Close stops the pending drain timer and waits for an in-flight drain.
func (r *Reactor) Close() {
	r.mu.Lock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()
	r.drains.Wait()
}

// Flush processes everything currently buffered, synchronously. Intended
// for tests and shutdown paths.
func (r *Reactor) Flush() {
	r.drain()
}

func (r *Reactor) process(batch map[string]ChangeEvent) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	var toValidate, toRemove []string
	for path, ev := range batch {
		if ev.Kind == ChangeRemove {
			toRemove = append(toRemove, path)
		} else {
			toValidate = append(toValidate, path)
		}
	}
	sort.Strings(toRemove)
	sort.Strings(toValidate)

	for _, id := range toRemove {
		r.handleRemoval(id)
	}
	if len(toValidate) > 0 {
		r.ingestAndValidate(toValidate)
	}
}

// handleRemoval performs the deletion cascade. Every step is best-effort:
// a failure is logged and the remaining steps still run, favouring
// eventual consistency over all-or-nothing transactions.
func (r *Reactor) handleRemoval(id string) {
	log := r.logger.With(slog.String("id", id))

	// 1. Backlink holders, captured before surgery.
	backlinks, err := r.store.Backlinks(id)
	if err != nil {
		log.Warn("reactor: backlink lookup failed", slog.String("error", err.Error()))
	}

	// 2. Archive the node and its incident edges.
	if err := r.store.ArchiveNode(id, "deleted"); err != nil {
		log.Warn("reactor: archive failed", slog.String("error", err.Error()))
	}

	// 3. Strip the removed id from each backlink holder.
	for _, holder := range backlinks {
		if err := r.store.StripOutboundRef(holder, id); err != nil {
			log.Warn("reactor: strip backlink failed",
				slog.String("holder", holder), slog.String("error", err.Error()))
		}
	}

	// 4. Penalise dependents and strip the dependency reference.
	dependents, err := r.store.Dependents(id)
	if err != nil {
		log.Warn("reactor: dependent lookup failed", slog.String("error", err.Error()))
	}
	for _, dep := range dependents {
		if err := r.store.RemoveDependencyRef(dep, id); err != nil {
			log.Warn("reactor: dependency strip failed",
				slog.String("dependent", dep), slog.String("error", err.Error()))
		}
	}

	// 5. Delete the node and all incident edges from live storage.
	if err := r.store.DeleteNode(id); err != nil {
		log.Warn("reactor: delete failed", slog.String("error", err.Error()))
	}

	// 6. Notify collaborators.
	affected := unionSorted(backlinks, dependents)
	if r.notifier != nil {
		r.notifier.FileDeleted(id, affected)
	}

	// 7. Re-validate backlink holders so health reflects the repaired links.
	if len(backlinks) > 0 {
		r.orch.ValidateBatch(context.Background(), backlinks)
	}

	log.Debug("reactor: removal processed", slog.Int("affected", len(affected)))
}

// ingestAndValidate re-ingests changed documents, widens the id set to the
// affected closure, and validates the deduplicated union once.
func (r *Reactor) ingestAndValidate(ids []string) {
	for _, id := range ids {
		data, err := r.vault.Read(id)
		if err != nil {
			r.logger.Warn("reactor: read failed", slog.String("path", id), slog.String("error", err.Error()))
			continue
		}
		if err := graph.IngestFile(r.store, id, data, time.Now()); err != nil {
			r.logger.Warn("reactor: ingest failed", slog.String("path", id), slog.String("error", err.Error()))
		}
	}

	closure := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		closure[id] = struct{}{}
		affected, err := r.store.GetAffectedNodes(id, r.affectedDepth)
		if err != nil {
			r.logger.Warn("reactor: closure failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		for _, a := range affected {
			closure[a] = struct{}{}
		}
	}

	union := make([]string, 0, len(closure))
	for id := range closure {
		union = append(union, id)
	}
	sort.Strings(union)

	r.orch.ValidateBatch(context.Background(), union)
	if r.notifier != nil {
		r.notifier.ValidationComplete(union)
	}
}

// RestoreArchivedFile reinserts the most recent archived snapshot of id,
// re-links live nodes whose documents still reference it, and refreshes
// validation. Returns false (not an error) when no archive exists.
func (r *Reactor) RestoreArchivedFile(id string) (bool, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	node, err := r.store.RestoreArchived(id)
	if err != nil {
		return false, err
	}
	if node == nil {
		return false, nil
	}

	relinked := r.relinkReferences(id)

	r.orch.ValidateBatch(context.Background(), append([]string{id}, relinked...))
	return true, nil
}

// relinkReferences re-parses every vault document and re-adds references
// to restored that are missing from the holder's recorded link set.
func (r *Reactor) relinkReferences(restored string) []string {
	metas, err := r.vault.List("")
	if err != nil {
		r.logger.Warn("reactor: relink scan failed", slog.String("error", err.Error()))
		return nil
	}

	var relinked []string
	for _, m := range metas {
		if m.Path == restored {
			continue
		}
		data, err := r.vault.Read(m.Path)
		if err != nil {
			continue
		}
		doc, err := parser.Parse(data)
		if err != nil {
			continue
		}
		if !contains(doc.Links, restored) {
			continue
		}
		holder, err := r.store.GetNode(m.Path)
		if err != nil || holder == nil {
			continue
		}
		if contains(holder.Links.Outbound, restored) {
			continue
		}
		if err := r.store.RelinkOutboundRef(m.Path, restored); err != nil {
			r.logger.Warn("reactor: relink failed",
				slog.String("holder", m.Path), slog.String("error", err.Error()))
			continue
		}
		relinked = append(relinked, m.Path)
	}
	return relinked
}

// CleanupOldArchives deletes archived rows past the retention cutoff.
func (r *Reactor) CleanupOldArchives(retentionDays int) (int, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	return r.store.CleanupOldArchives(retentionDays)
}

func unionSorted(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
