package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/divanvisagie/para-notes/internal/apperr"
)

// DefaultDebounce is the window during which repeated raw events for one
// path collapse into a single change event. Editors typically emit several
// writes per save.
const DefaultDebounce = 300 * time.Millisecond

// Watcher observes the notes root recursively and emits debounced semantic
// change events. Directories created at runtime are added to the watch
// list automatically.
type Watcher struct {
	root   string
	window time.Duration
	ignore *Matcher
	fsw    *fsnotify.Watcher
	events chan ChangeEvent
	logger *slog.Logger
}

// pendingChange is one coalesced raw event awaiting its debounce deadline.
type pendingChange struct {
	op       Op
	deadline time.Time
}

// New establishes the recursive OS watch on root. Failure to establish it
// is fatal for live reload (apperr.ErrWatch); the caller decides whether to
// retry or run without the feature.
func New(root string, ignore *Matcher, window time.Duration, logger *slog.Logger) (*Watcher, error) {
	if window <= 0 {
		window = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %v: %w", err, apperr.ErrWatch)
	}
	w := &Watcher{
		root:   root,
		window: window,
		ignore: ignore,
		fsw:    fsw,
		events: make(chan ChangeEvent, 256),
		logger: logger,
	}
	if err := w.addDirsRecursive(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watcher: watch %s: %v: %w", root, err, apperr.ErrWatch)
	}
	return w, nil
}

// Events returns the change event stream. It is closed when Run returns.
func (w *Watcher) Events() <-chan ChangeEvent { return w.events }

// Run processes raw notifications until ctx is cancelled. Individual event
// failures are logged and skipped; they never stop the stream.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.fsw.Close()

	w.logger.Info("watcher: started",
		slog.String("root", w.root),
		slog.Duration("debounce", w.window))

	pending := make(map[string]pendingChange)
	timer := time.NewTimer(w.window)
	if !timer.Stop() {
		<-timer.C
	}
	timerArmed := false

	arm := func() {
		next, ok := earliestDeadline(pending)
		if !ok {
			return
		}
		d := time.Until(next)
		if d < 0 {
			d = 0
		}
		if timerArmed && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d)
		timerArmed = true
	}

	for {
		select {
		case <-ctx.Done():
			if timerArmed {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			timerArmed = false
			now := time.Now()
			for path, pc := range pending {
				if pc.deadline.After(now) {
					continue
				}
				delete(pending, path)
				select {
				case w.events <- ChangeEvent{Op: pc.op, Path: path}:
				case <-ctx.Done():
					return nil
				}
			}
			arm()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleRaw(ev, pending)
			arm()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// handleRaw folds one raw fsnotify event into the pending set.
func (w *Watcher) handleRaw(ev fsnotify.Event, pending map[string]pendingChange) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || (w.ignore != nil && w.ignore.Ignored(rel)) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		// New directories join the watch list immediately; files already
		// inside them (moved in as a unit) are scheduled as creations.
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if addErr := w.addDirsRecursive(ev.Name); addErr != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", rel),
					slog.String("error", addErr.Error()))
			}
			w.schedule(pending, rel, Created)
			w.scheduleDirContents(pending, ev.Name)
			return
		}
		w.schedule(pending, rel, Created)

	case ev.Op&fsnotify.Write != 0:
		w.schedule(pending, rel, Modified)

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// fsnotify reports a rename on the old path only; the new path
		// arrives as a separate Create if it stays under the root.
		w.schedule(pending, rel, Removed)
	}
}

// schedule coalesces op into the pending entry for path and pushes the
// debounce deadline out by one window.
func (w *Watcher) schedule(pending map[string]pendingChange, path string, op Op) {
	deadline := time.Now().Add(w.window)
	prev, ok := pending[path]
	if !ok {
		pending[path] = pendingChange{op: op, deadline: deadline}
		return
	}
	merged := mergeOps(prev.op, op)
	pending[path] = pendingChange{op: merged, deadline: deadline}
}

// mergeOps folds a newer raw op into an already pending one for the same path.
func mergeOps(prev, next Op) Op {
	switch {
	case next == Removed:
		return Removed
	case prev == Created:
		// Create followed by writes is still one creation.
		return Created
	case prev == Removed && next == Created:
		// Removed then recreated within one window: the disk state at
		// processing time is what counts, treat as a creation.
		return Created
	default:
		return next
	}
}

// scheduleDirContents schedules Created events for files that already exist
// inside a directory that appeared as a single rename/move.
func (w *Watcher) scheduleDirContents(pending map[string]pendingChange, dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == dir {
			return nil
		}
		rel, rErr := filepath.Rel(w.root, p)
		if rErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if w.ignore != nil && w.ignore.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		w.schedule(pending, rel, Created)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watch list,
// skipping ignored entries. Symlinked directories are resolved and visited
// at most once to guard against link loops.
func (w *Watcher) addDirsRecursive(root string) error {
	visited := make(map[string]bool)
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root {
			rel, rErr := filepath.Rel(w.root, p)
			if rErr == nil && w.ignore != nil && w.ignore.Ignored(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
		}
		real, rErr := filepath.EvalSymlinks(p)
		if rErr != nil {
			return filepath.SkipDir
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true
		return w.fsw.Add(p)
	})
}

func earliestDeadline(pending map[string]pendingChange) (time.Time, bool) {
	var min time.Time
	found := false
	for _, pc := range pending {
		if !found || pc.deadline.Before(min) {
			min = pc.deadline
			found = true
		}
	}
	return min, found
}
