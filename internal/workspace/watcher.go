// Package workspace feeds file facts from a project tree into the
// knowledge graph. Files become low-weight nodes that conversational
// search surfaces alongside facts the operator stated directly. The
// orchestrator never calls this package; it only benefits from the nodes.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mindforge-ai/mindforge/internal/config"
	"github.com/mindforge-ai/mindforge/internal/graph"
)

// fileWeight keeps per-file observations below first-class facts, so
// Cleanup can evict stale ones and ranking prefers stated knowledge.
const fileWeight = 0.3

const defaultDebounce = 500 * time.Millisecond

// Watcher mirrors a directory tree into file-typed graph nodes: one walk
// at startup, then fsnotify events coalesced over a debounce window.
// All mutable state is owned by the Run goroutine.
type Watcher struct {
	store    *graph.Store
	root     string
	ignore   map[string]struct{}
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	nodes   map[string]string      // relative path -> node ID
	pending map[string]fsnotify.Op // coalesced events awaiting flush
}

// New validates the root directory and prepares a watcher. Run does the
// actual work.
func New(store *graph.Store, cfg config.WorkspaceConfig, logger *slog.Logger) (*Watcher, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	ignore := make(map[string]struct{}, len(cfg.Ignore))
	for _, name := range cfg.Ignore {
		ignore[name] = struct{}{}
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		store:    store,
		root:     root,
		ignore:   ignore,
		debounce: debounce,
		logger:   logger,
		watcher:  fw,
		nodes:    make(map[string]string),
		pending:  make(map[string]fsnotify.Op),
	}, nil
}

// Run indexes the tree, then follows change events until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.walk(w.root); err != nil {
		return fmt.Errorf("indexing workspace: %w", err)
	}
	w.logger.Info("workspace indexed", "root", w.root, "files", len(w.nodes))

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.enqueue(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("workspace watcher", "error", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

// walk registers watches on every directory under dir and records every
// file. Unreadable entries are skipped.
func (w *Watcher) walk(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != w.root && w.ignoredName(d.Name()) {
				return fs.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("watching directory", "path", path, "error", err)
			}
			return nil
		}
		w.record(path)
		return nil
	})
}

func (w *Watcher) ignoredName(name string) bool {
	_, ok := w.ignore[name]
	return ok
}

// ignoredPath reports whether any element of the path relative to root is
// on the ignore list.
func (w *Watcher) ignoredPath(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if w.ignoredName(part) {
			return true
		}
	}
	return false
}

func (w *Watcher) enqueue(ev fsnotify.Event) {
	if w.ignoredPath(ev.Name) {
		return
	}
	w.pending[ev.Name] |= ev.Op
}

func (w *Watcher) flush() {
	if len(w.pending) == 0 {
		return
	}
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)

	for path, op := range batch {
		switch {
		case op&(fsnotify.Remove|fsnotify.Rename) != 0:
			w.forget(path)
		case op&(fsnotify.Create|fsnotify.Write) != 0:
			info, err := os.Stat(path)
			if err != nil {
				// Created and gone within one window.
				w.forget(path)
				continue
			}
			if info.IsDir() {
				if err := w.walk(path); err != nil {
					w.logger.Warn("indexing new directory", "path", path, "error", err)
				}
				continue
			}
			w.record(path)
		}
	}
}

// record upserts the graph node for one file.
func (w *Watcher) record(path string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}

	if id, ok := w.nodes[rel]; ok {
		// A bare update refreshes the timestamp, keeping the file ranked
		// as recent activity.
		if w.store.UpdateNode(id, graph.NodeUpdate{}) {
			return
		}
		// Node evicted behind our back (Cleanup or Clear); re-add below.
		delete(w.nodes, rel)
	}

	id := w.store.AddNode(graph.TypeFile, rel, graph.NodeOpts{
		Weight: fileWeight,
		Metadata: map[string]any{
			"path":      rel,
			"name":      filepath.Base(rel),
			"extension": filepath.Ext(rel),
		},
	})
	w.nodes[rel] = id
}

// forget drops the node for a removed path. Directories take their whole
// subtree with them.
func (w *Watcher) forget(path string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}

	prefix := rel + string(filepath.Separator)
	for p, id := range w.nodes {
		if p == rel || strings.HasPrefix(p, prefix) {
			w.store.RemoveNode(id)
			delete(w.nodes, p)
		}
	}
}
