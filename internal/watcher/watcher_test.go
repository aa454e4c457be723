package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, root string) (*Watcher, context.CancelFunc) {
	t.Helper()
	w, err := New(root, NewMatcher(nil), 100*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	return w, cancel
}

// collect drains events until the stream stays quiet for the given window.
func collect(w *Watcher, quiet time.Duration) []ChangeEvent {
	var out []ChangeEvent
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(quiet):
			return out
		}
	}
}

func TestWatcherCreateEmitsSingleEvent(t *testing.T) {
	root := t.TempDir()
	w, cancel := startWatcher(t, root)
	defer cancel()

	if err := os.WriteFile(filepath.Join(root, "a.md"), []byte("# A"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := collect(w, 600*time.Millisecond)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	if events[0].Path != "a.md" || events[0].Op != Created {
		t.Errorf("event = %+v, want Created a.md", events[0])
	}
}

func TestWatcherDebounceCollapsesBursts(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "burst.md")
	if err := os.WriteFile(path, []byte("v0"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, cancel := startWatcher(t, root)
	defer cancel()

	// A burst of writes well inside one debounce window.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("version"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	events := collect(w, 600*time.Millisecond)
	if len(events) != 1 {
		t.Fatalf("burst produced %d events, want 1: %+v", len(events), events)
	}
	if events[0].Op != Modified || events[0].Path != "burst.md" {
		t.Errorf("event = %+v, want Modified burst.md", events[0])
	}
}

func TestWatcherRemove(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, cancel := startWatcher(t, root)
	defer cancel()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	events := collect(w, 600*time.Millisecond)
	if len(events) != 1 || events[0].Op != Removed || events[0].Path != "gone.md" {
		t.Fatalf("events = %+v, want one Removed gone.md", events)
	}
}

func TestWatcherIgnoresHiddenFiles(t *testing.T) {
	root := t.TempDir()
	w, cancel := startWatcher(t, root)
	defer cancel()

	if err := os.WriteFile(filepath.Join(root, ".hidden.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "visible.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := collect(w, 600*time.Millisecond)
	for _, ev := range events {
		if ev.Path == ".hidden.md" {
			t.Errorf("hidden file surfaced: %+v", ev)
		}
	}
	found := false
	for _, ev := range events {
		if ev.Path == "visible.md" {
			found = true
		}
	}
	if !found {
		t.Errorf("visible file missing from %+v", events)
	}
}

func TestWatcherNewDirectoryWatched(t *testing.T) {
	root := t.TempDir()
	w, cancel := startWatcher(t, root)
	defer cancel()

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to pick up the new directory.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "inner.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	events := collect(w, 600*time.Millisecond)
	found := false
	for _, ev := range events {
		if ev.Path == "sub/inner.md" && ev.Op == Created {
			found = true
		}
	}
	if !found {
		t.Errorf("file in new directory not reported: %+v", events)
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	w, cancel := startWatcher(t, root)

	cancel()

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("expected closed event channel after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Error("event channel not closed after cancel")
	}
}

func TestMergeOps(t *testing.T) {
	cases := []struct {
		prev, next, want Op
	}{
		{Created, Modified, Created},
		{Modified, Modified, Modified},
		{Modified, Removed, Removed},
		{Created, Removed, Removed},
		{Removed, Created, Created},
	}
	for _, c := range cases {
		if got := mergeOps(c.prev, c.next); got != c.want {
			t.Errorf("mergeOps(%v, %v) = %v, want %v", c.prev, c.next, got, c.want)
		}
	}
}
