package noteservice_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/divanvisagie/para-notes/internal/apperr"
	"github.com/divanvisagie/para-notes/internal/noteservice"
	"github.com/divanvisagie/para-notes/internal/testutil"
)

func newService(t *testing.T) (*noteservice.Service, *testutil.Engine) {
	t.Helper()
	e := testutil.NewEngine(t)
	svc := noteservice.NewService(e.Files, e.Tree, e.Store, e.Search, e.Coord)
	return svc, e
}

func newServiceAt(t *testing.T, root string) (*noteservice.Service, *testutil.Engine) {
	t.Helper()
	e := testutil.NewEngineAt(t, root)
	svc := noteservice.NewService(e.Files, e.Tree, e.Store, e.Search, e.Coord)
	return svc, e
}

func TestSaveRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	// Unicode, wikilinks, trailing whitespace: all must survive byte for byte.
	content := []byte("# Überschrift\n\nsee [[andere/notiz|die Notiz]]  \n\tока 🎯\n")
	if err := svc.Save(ctx, "dir/notiz.md", content); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := svc.Raw(ctx, "dir/notiz.md")
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("round trip altered bytes:\n got %q\nwant %q", got, content)
	}
}

func TestSaveVisibleImmediately(t *testing.T) {
	svc, e := newService(t)
	ctx := context.Background()

	if err := svc.Save(ctx, "fresh.md", []byte("# Fresh\n\nnewly saved")); err != nil {
		t.Fatal(err)
	}

	// No watcher round-trip: tree, index, and page must already be current.
	if e.Tree.Lookup("fresh.md") == nil {
		t.Error("saved note not in tree")
	}
	if hits := svc.Search(ctx, "newly"); len(hits) != 1 || hits[0].Path != "fresh.md" {
		t.Errorf("Search(newly) = %+v", hits)
	}
	page, err := svc.Page(ctx, "fresh.md")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if page.Title != "Fresh" || !strings.Contains(page.HTML, "newly saved") {
		t.Errorf("page = %+v", page)
	}
}

func TestSaveRejectsTraversal(t *testing.T) {
	svc, e := newService(t)
	ctx := context.Background()

	err := svc.Save(ctx, "../outside.md", []byte("escape"))
	if !errors.Is(err, apperr.ErrInvalidPath) {
		t.Fatalf("err = %v, want ErrInvalidPath", err)
	}
	outside := filepath.Join(filepath.Dir(e.Root), "outside.md")
	if _, statErr := os.Stat(outside); !os.IsNotExist(statErr) {
		t.Error("traversal save reached disk")
	}
}

func TestSaveRejectsNonMarkdownAndDirs(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "proj/a.md", "# A")
	svc, _ := newServiceAt(t, root)
	ctx := context.Background()

	if err := svc.Save(ctx, "script.sh", []byte("#!/bin/sh")); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("non-markdown save err = %v, want ErrInvalidPath", err)
	}
	if err := svc.Save(ctx, "", []byte("x")); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("empty path save err = %v, want ErrInvalidPath", err)
	}
}

func TestMove(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "old.md", "# Movable\n\nspecific term")
	svc, e := newServiceAt(t, root)
	ctx := context.Background()

	if err := svc.Move(ctx, "old.md", "sub/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if e.Tree.Lookup("old.md") != nil {
		t.Error("old path still in tree")
	}
	if e.Tree.Lookup("sub/new.md") == nil {
		t.Error("new path missing from tree")
	}
	if hits := svc.Search(ctx, "specific"); len(hits) != 1 || hits[0].Path != "sub/new.md" {
		t.Errorf("Search after move = %+v", hits)
	}
	if _, err := svc.Raw(ctx, "old.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Raw(old) err = %v, want ErrNotFound", err)
	}
}

func TestMoveRefusesExistingDestination(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "a.md", "# A")
	testutil.WriteFile(t, root, "b.md", "# B")
	svc, _ := newServiceAt(t, root)
	ctx := context.Background()

	if err := svc.Move(ctx, "a.md", "b.md"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	got, err := svc.Raw(ctx, "b.md")
	if err != nil || string(got) != "# B" {
		t.Errorf("destination clobbered: %q, %v", got, err)
	}
}

func TestMoveMissingSource(t *testing.T) {
	svc, _ := newService(t)
	if err := svc.Move(context.Background(), "ghost.md", "new.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRawMissing(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Raw(context.Background(), "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPageFile(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "note.md", "# Note Title\n\nbody with [[linked/target]]")
	svc, _ := newServiceAt(t, root)

	page, err := svc.Page(context.Background(), "note.md")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if page.Title != "Note Title" || page.IsDir {
		t.Errorf("page = %+v", page)
	}
	if !strings.Contains(page.HTML, `href="/linked/target.md"`) {
		t.Errorf("wikilink not rendered: %q", page.HTML)
	}
	if len(page.Links) != 1 || page.Links[0] != "linked/target" {
		t.Errorf("Links = %v", page.Links)
	}
}

func TestPageDirectoryWithReadme(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "proj/README.md", "# Project Index\n\nwelcome")
	testutil.WriteFile(t, root, "proj/task.md", "# Task")
	testutil.WriteFile(t, root, "proj/sub/x.md", "# X")
	svc, _ := newServiceAt(t, root)

	page, err := svc.Page(context.Background(), "proj")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if !page.IsDir {
		t.Fatal("directory page not marked IsDir")
	}
	if !strings.Contains(page.HTML, "welcome") {
		t.Errorf("README not rendered into directory page: %q", page.HTML)
	}
	// Directories first, then files by name.
	var names []string
	for _, c := range page.Children {
		names = append(names, c.Name)
	}
	want := []string{"sub", "README.md", "task.md"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("children = %v, want %v", names, want)
	}
}

func TestPageRootDirectory(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "a.md", "# A")
	svc, _ := newServiceAt(t, root)

	page, err := svc.Page(context.Background(), "")
	if err != nil {
		t.Fatalf("Page(root): %v", err)
	}
	if !page.IsDir || page.Title != "Notes" {
		t.Errorf("root page = %+v", page)
	}
	if len(page.Children) != 1 {
		t.Errorf("root children = %+v", page.Children)
	}
}

func TestPageMissing(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Page(context.Background(), "nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTreeList(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "a.md", "# A")
	testutil.WriteFile(t, root, "proj/b.md", "# B")
	testutil.WriteFile(t, root, "proj/img.png", "binary")
	svc, _ := newServiceAt(t, root)
	ctx := context.Background()

	all, err := svc.TreeList(ctx, "")
	if err != nil {
		t.Fatalf("TreeList: %v", err)
	}
	if len(all) != 2 || all[0] != "a.md" || all[1] != "proj/b.md" {
		t.Errorf("TreeList = %v", all)
	}
	scoped, err := svc.TreeList(ctx, "proj")
	if err != nil {
		t.Fatalf("TreeList(proj): %v", err)
	}
	if len(scoped) != 1 || scoped[0] != "proj/b.md" {
		t.Errorf("TreeList(proj) = %v", scoped)
	}
}

func TestListingRejectsTraversal(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Children(ctx, "../outside"); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("Children err = %v, want ErrInvalidPath", err)
	}
	if _, err := svc.TreeList(ctx, "../outside"); !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("TreeList err = %v, want ErrInvalidPath", err)
	}
}
