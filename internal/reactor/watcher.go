package reactor

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/gebo/internal/graph"
	"github.com/starford/gebo/internal/storage"
)

// Watch starts an fsnotify watcher on the vault root and feeds change
// events into the reactor until ctx is cancelled.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events fire on the old path only, so they enqueue a remove
// and schedule a short reconciliation pass that catches the new path.
func Watch(ctx context.Context, r *Reactor, db graph.Store, store storage.Provider, vaultRoot string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(r, db, store, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories join the watch list; their existing files
			// are enqueued as adds.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					enqueueDir(r, vaultRoot, absPath)
					continue
				}
			}

			// Only Markdown files from here on.
			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				r.Enqueue(ChangeEvent{Kind: ChangeAdd, Path: rel, Timestamp: time.Now()})

			case ev.Op&fsnotify.Write != 0:
				r.Enqueue(ChangeEvent{Kind: ChangeModify, Path: rel, Timestamp: time.Now()})

			case ev.Op&fsnotify.Remove != 0:
				r.Enqueue(ChangeEvent{Kind: ChangeRemove, Path: rel, Timestamp: time.Now()})

			case ev.Op&fsnotify.Rename != 0:
				r.Enqueue(ChangeEvent{Kind: ChangeRemove, Path: rel, Timestamp: time.Now()})
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileAfterRename diffs the graph against the disk and enqueues the
// corrections: removes for ids without a file, adds for new or changed
// files. All repairs route through the reactor queue.
func reconcileAfterRename(r *Reactor, db graph.Store, store storage.Provider, logger *slog.Logger) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	now := time.Now()
	for id := range checksums {
		if _, ok := disk[id]; !ok {
			logger.Debug("reconcile: stale id", slog.String("id", id))
			r.Enqueue(ChangeEvent{Kind: ChangeRemove, Path: id, Timestamp: now})
		}
	}
	for path, cs := range disk {
		if checksums[path] == cs {
			continue
		}
		logger.Debug("reconcile: changed file", slog.String("path", path))
		r.Enqueue(ChangeEvent{Kind: ChangeAdd, Path: path, Timestamp: now})
	}
}

// enqueueDir enqueues adds for the .md files in a newly created directory.
func enqueueDir(r *Reactor, vaultRoot, dirPath string) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		r.Enqueue(ChangeEvent{Kind: ChangeAdd, Path: rel, Timestamp: time.Now()})
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
