// Package syncer applies filesystem change events to the in-memory model
// and fans reload notifications out to live sessions.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/divanvisagie/para-notes/internal/apperr"
	"github.com/divanvisagie/para-notes/internal/notes"
	"github.com/divanvisagie/para-notes/internal/search"
	"github.com/divanvisagie/para-notes/internal/storage"
	"github.com/divanvisagie/para-notes/internal/watcher"
)

// Notifier receives reload broadcasts for content-affecting changes.
type Notifier interface {
	PublishReload(path string)
}

// Coordinator owns the single update path through which every change —
// watcher-originated or local save — flows into the tree, content store,
// and search engine. Events for one path are applied strictly in arrival
// order; each path's tree+store+search update happens under one lock.
type Coordinator struct {
	files  storage.Provider
	tree   *notes.Tree
	store  *notes.Store
	engine *search.Engine
	notify Notifier
	ignore *watcher.Matcher
	logger *slog.Logger

	mu      sync.Mutex
	localCS map[string]string // path → checksum of the last local save
}

// New creates a coordinator. notify may be nil when live reload is disabled.
func New(files storage.Provider, tree *notes.Tree, store *notes.Store, engine *search.Engine, notify Notifier, ignore *watcher.Matcher, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		files:   files,
		tree:    tree,
		store:   store,
		engine:  engine,
		notify:  notify,
		ignore:  ignore,
		logger:  logger,
		localCS: make(map[string]string),
	}
}

// Bootstrap scans the notes root and builds the full tree and search index.
// A single document's parse failure never aborts the scan.
func (c *Coordinator) Bootstrap() error {
	var ignoreFn notes.IgnoreFunc
	if c.ignore != nil {
		ignoreFn = c.ignore.Ignored
	}
	if err := c.tree.Rebuild(c.files.Root(), ignoreFn); err != nil {
		return err
	}

	indexed := 0
	for _, path := range c.tree.Paths() {
		node := c.tree.Lookup(path)
		if node == nil || node.IsDir() || !notes.IsMarkdown(path) {
			continue
		}
		doc, err := c.store.GetOrLoad(path)
		if err != nil {
			if errors.Is(err, apperr.ErrEncoding) {
				c.logger.Debug("sync: skipped non-text file", slog.String("path", path))
			} else {
				c.logger.Warn("sync: load failed", slog.String("path", path), slog.String("error", err.Error()))
			}
			continue
		}
		c.engine.Reindex(doc)
		indexed++
	}

	c.logger.Info("sync: initial scan complete",
		slog.Int("entries", c.tree.Len()),
		slog.Int("indexed", indexed))
	return nil
}

// Run consumes the watcher's event stream until ctx is cancelled or the
// stream closes.
func (c *Coordinator) Run(ctx context.Context, events <-chan watcher.ChangeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.Apply(ev)
		}
	}
}

// Apply processes one change event. Rename is removal of the old path plus
// creation of the new one, with no other event interleaving between them.
func (c *Coordinator) Apply(ev watcher.ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Op {
	case watcher.Created, watcher.Modified:
		c.upsertLocked(ev.Path)
	case watcher.Removed:
		c.removeLocked(ev.Path)
	case watcher.Renamed:
		c.removeLocked(ev.OldPath)
		c.upsertLocked(ev.Path)
	}
}

// ApplyLocal records a just-saved file synchronously, so the caller sees a
// fresh index before its HTTP response returns, and remembers the content
// checksum so the watcher's echo of the same save is not re-broadcast.
func (c *Coordinator) ApplyLocal(path string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.localCS[path] = storage.Checksum(data)

	modTime := time.Now()
	if info, err := c.files.Stat(path); err == nil {
		modTime = info.ModTime()
	}
	c.tree.Upsert(path, notes.KindFile, int64(len(data)), modTime)

	if notes.IsMarkdown(path) {
		doc, err := c.store.Put(path, data)
		if err != nil {
			c.store.Invalidate(path)
			c.engine.Remove(path)
		} else {
			c.engine.Reindex(doc)
		}
		c.broadcast(path)
	}
}

func (c *Coordinator) upsertLocked(path string) {
	info, err := c.files.Stat(path)
	if err != nil {
		// Vanished between the event and processing; treat as removal.
		c.removeLocked(path)
		return
	}

	if info.IsDir() {
		c.tree.Upsert(path, notes.KindDir, 0, info.ModTime())
		return
	}

	data, err := c.files.Read(path)
	if err != nil {
		c.logger.Warn("sync: read failed", slog.String("path", path), slog.String("error", err.Error()))
		c.tree.Upsert(path, notes.KindFile, info.Size(), info.ModTime())
		c.store.Invalidate(path)
		return
	}

	// A watcher echo of a local save: state is already current and the
	// subscribers were already notified.
	cs := storage.Checksum(data)
	if c.localCS[path] == cs {
		delete(c.localCS, path)
		return
	}
	delete(c.localCS, path)

	c.tree.Upsert(path, notes.KindFile, info.Size(), info.ModTime())
	c.store.Invalidate(path)

	if notes.IsMarkdown(path) {
		doc, err := c.store.Put(path, data)
		if err != nil {
			if errors.Is(err, apperr.ErrEncoding) {
				c.logger.Debug("sync: non-text content", slog.String("path", path))
			} else {
				c.logger.Warn("sync: parse failed", slog.String("path", path), slog.String("error", err.Error()))
			}
			c.engine.Remove(path)
		} else {
			c.engine.Reindex(doc)
		}
		c.broadcast(path)
	}
}

func (c *Coordinator) removeLocked(path string) {
	removed := c.tree.Remove(path)
	if removed == nil {
		// Not in the tree (or a bare directory): still drop any dependent
		// state so no document can outlive its tree entry.
		removed = []string{path}
	}
	for _, p := range removed {
		c.store.Invalidate(p)
		c.engine.Remove(p)
		delete(c.localCS, p)
		if notes.IsMarkdown(p) {
			c.broadcast(p)
		}
	}
}

// broadcast is best-effort: delivery failures are the broker's concern and
// never fail event processing.
func (c *Coordinator) broadcast(path string) {
	if c.notify != nil {
		c.notify.PublishReload(path)
	}
}
