package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/divanvisagie/para-notes/internal/apperr"
)

func newTestFS(t *testing.T) (*FS, string) {
	t.Helper()
	root := t.TempDir()
	fsys, err := NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return fsys, root
}

func TestNewFSRejectsMissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestNewFSRejectsFileRoot(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	fsys, _ := newTestFS(t)
	content := []byte("# Note\n\nünïcode + [[wikilink]]\n")

	if err := fsys.Write("sub/dir/note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := fsys.Read("sub/dir/note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("round trip altered bytes: %q != %q", got, content)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	fsys, root := newTestFS(t)
	if err := fsys.Write("note.md", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".para-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestTraversalRejected(t *testing.T) {
	fsys, root := newTestFS(t)
	outside := filepath.Join(filepath.Dir(root), "escape.md")

	cases := []string{"../escape.md", "a/../../escape.md", "/etc/passwd"}
	for _, p := range cases {
		if _, err := fsys.Read(p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidPath", p, err)
		}
		if err := fsys.Write(p, []byte("x")); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Write(%q) err = %v, want ErrInvalidPath", p, err)
		}
		if err := fsys.Delete(p); !errors.Is(err, apperr.ErrInvalidPath) {
			t.Errorf("Delete(%q) err = %v, want ErrInvalidPath", p, err)
		}
	}
	if _, err := os.Stat(outside); !os.IsNotExist(err) {
		t.Error("traversal write reached outside the root")
	}
}

func TestMove(t *testing.T) {
	fsys, _ := newTestFS(t)
	if err := fsys.Write("old.md", []byte("body")); err != nil {
		t.Fatal(err)
	}
	if err := fsys.Move("old.md", "nested/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := fsys.Read("old.md"); err == nil {
		t.Error("old path still readable after move")
	}
	got, err := fsys.Read("nested/new.md")
	if err != nil {
		t.Fatalf("Read moved file: %v", err)
	}
	if string(got) != "body" {
		t.Errorf("moved content = %q", got)
	}
}

func TestDeleteAndStat(t *testing.T) {
	fsys, _ := newTestFS(t)
	if err := fsys.Write("a.md", []byte("12345")); err != nil {
		t.Fatal(err)
	}
	info, err := fsys.Stat("a.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size = %d, want 5", info.Size())
	}
	if err := fsys.Delete("a.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := fsys.Stat("a.md"); err == nil {
		t.Error("Stat succeeded after delete")
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("same"))
	if a != Checksum([]byte("same")) {
		t.Error("checksum not stable")
	}
	if a == Checksum([]byte("different")) {
		t.Error("distinct content collided")
	}
	if len(a) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a))
	}
}
