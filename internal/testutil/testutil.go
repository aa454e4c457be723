// Package testutil provides shared test helpers for setting up notes
// directories and the in-memory engine.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/divanvisagie/para-notes/internal/notes"
	"github.com/divanvisagie/para-notes/internal/search"
	"github.com/divanvisagie/para-notes/internal/storage"
	"github.com/divanvisagie/para-notes/internal/syncer"
	"github.com/divanvisagie/para-notes/internal/watcher"
)

// Logger returns a quiet slog logger for tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NotesDir creates a temporary notes directory with a storage.Provider.
func NotesDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes a file under root, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Engine bundles the in-memory model for tests.
type Engine struct {
	Root    string
	Files   storage.Provider
	Tree    *notes.Tree
	Store   *notes.Store
	Search  *search.Engine
	Coord   *syncer.Coordinator
	Notify  *RecordingNotifier
	Matcher *watcher.Matcher
}

// NewEngine builds a full engine over a temporary notes directory and runs
// the initial scan.
func NewEngine(t *testing.T) *Engine {
	t.Helper()
	root, files := NotesDir(t)
	return newEngine(t, root, files)
}

// NewEngineAt builds a full engine over an existing directory.
func NewEngineAt(t *testing.T, root string) *Engine {
	t.Helper()
	files, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return newEngine(t, root, files)
}

func newEngine(t *testing.T, root string, files storage.Provider) *Engine {
	t.Helper()
	e := &Engine{
		Root:    root,
		Files:   files,
		Tree:    notes.NewTree(),
		Store:   notes.NewStore(files),
		Search:  search.NewEngine(20),
		Notify:  &RecordingNotifier{},
		Matcher: watcher.NewMatcher(nil),
	}
	e.Coord = syncer.New(files, e.Tree, e.Store, e.Search, e.Notify, e.Matcher, Logger())
	if err := e.Coord.Bootstrap(); err != nil {
		t.Fatal(err)
	}
	return e
}

// RecordingNotifier captures reload broadcasts for assertions.
type RecordingNotifier struct {
	mu    sync.Mutex
	paths []string
}

// PublishReload records the broadcast path.
func (n *RecordingNotifier) PublishReload(path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
}

// Reloads returns a copy of all recorded broadcast paths.
func (n *RecordingNotifier) Reloads() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
