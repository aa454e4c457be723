// Package noteservice coordinates storage, the in-memory model, and the
// sync coordinator for the HTTP and MCP surfaces. Saving goes through the
// same update path as an external change, so both stay consistent.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/divanvisagie/para-notes/internal/apperr"
	"github.com/divanvisagie/para-notes/internal/notes"
	"github.com/divanvisagie/para-notes/internal/search"
	"github.com/divanvisagie/para-notes/internal/storage"
	"github.com/divanvisagie/para-notes/internal/syncer"
	"github.com/divanvisagie/para-notes/internal/watcher"
)

// PageDetail is the rendered representation of a note or directory.
type PageDetail struct {
	Path     string     `json:"path"`
	Title    string     `json:"title"`
	HTML     string     `json:"html"`
	IsDir    bool       `json:"is_dir"`
	Links    []string   `json:"links,omitempty"`
	Children []TreeItem `json:"children,omitempty"`
}

// TreeItem is one entry in a tree or directory listing.
type TreeItem struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time"`
}

// Service exposes the note operations consumed by HTTP handlers and MCP
// tools.
type Service struct {
	files storage.Provider
	tree  *notes.Tree
	store *notes.Store
	index *search.Engine
	coord *syncer.Coordinator
}

// NewService creates a note service.
func NewService(files storage.Provider, tree *notes.Tree, store *notes.Store, index *search.Engine, coord *syncer.Coordinator) *Service {
	return &Service{files: files, tree: tree, store: store, index: index, coord: coord}
}

// Save validates path, atomically writes content to disk, and synchronously
// pushes the change through the coordinator so tree, cache, and index all
// reflect it before Save returns. The matching watcher event is suppressed.
func (s *Service) Save(_ context.Context, path string, content []byte) error {
	norm, err := notes.NormalizePath(path)
	if err != nil {
		return err
	}
	if norm == "" {
		return fmt.Errorf("noteservice: empty path: %w", apperr.ErrInvalidPath)
	}
	if !notes.IsMarkdown(norm) {
		return fmt.Errorf("noteservice: %s is not a markdown note: %w", norm, apperr.ErrInvalidPath)
	}
	if node := s.tree.Lookup(norm); node != nil && node.IsDir() {
		return fmt.Errorf("noteservice: %s is a directory: %w", norm, apperr.ErrInvalidPath)
	}

	if err := s.files.Write(norm, content); err != nil {
		return err
	}
	s.coord.ApplyLocal(norm, content)
	return nil
}

// Move renames a note and pushes the rename through the coordinator as a
// single atomic Renamed event. An existing destination is never clobbered.
func (s *Service) Move(_ context.Context, from, to string) error {
	fromNorm, err := notes.NormalizePath(from)
	if err != nil {
		return err
	}
	toNorm, err := notes.NormalizePath(to)
	if err != nil {
		return err
	}
	if fromNorm == "" || toNorm == "" {
		return fmt.Errorf("noteservice: empty path: %w", apperr.ErrInvalidPath)
	}
	if s.tree.Lookup(fromNorm) == nil {
		return fmt.Errorf("noteservice: %s: %w", fromNorm, apperr.ErrNotFound)
	}
	if s.tree.Lookup(toNorm) != nil {
		return fmt.Errorf("noteservice: %s: %w", toNorm, apperr.ErrAlreadyExists)
	}
	if err := s.files.Move(fromNorm, toNorm); err != nil {
		return err
	}
	s.coord.Apply(watcher.ChangeEvent{Op: watcher.Renamed, Path: toNorm, OldPath: fromNorm})
	return nil
}

// Raw returns the exact on-disk bytes of a note, for edit round-trip
// fidelity.
func (s *Service) Raw(_ context.Context, path string) ([]byte, error) {
	norm, err := notes.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	data, err := s.files.Read(norm)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("noteservice: %s: %w", norm, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// Page returns the rendered representation of a path. Directories render
// their README.md or INDEX.md when present, otherwise an ordered listing.
func (s *Service) Page(ctx context.Context, path string) (*PageDetail, error) {
	norm, err := notes.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	node := s.tree.Lookup(norm)
	if node == nil {
		return nil, fmt.Errorf("noteservice: %s: %w", norm, apperr.ErrNotFound)
	}
	if node.IsDir() {
		return s.dirPage(ctx, norm)
	}

	doc, err := s.store.GetOrLoad(norm)
	if err != nil {
		return nil, err
	}
	return &PageDetail{
		Path:  norm,
		Title: doc.Title,
		HTML:  doc.HTML,
		Links: notes.WikilinkTargets(string(doc.Raw)),
	}, nil
}

// dirPage renders a directory: its index note when one exists, plus the
// ordered child listing.
func (s *Service) dirPage(ctx context.Context, dir string) (*PageDetail, error) {
	children, err := s.Children(ctx, dir)
	if err != nil {
		return nil, err
	}
	page := &PageDetail{
		Path:     dir,
		Title:    notes.TitleFromPath(dir),
		IsDir:    true,
		Children: children,
	}
	if dir == "" {
		page.Title = "Notes"
	}

	for _, name := range []string{"README.md", "INDEX.md"} {
		indexPath := name
		if dir != "" {
			indexPath = dir + "/" + name
		}
		if n := s.tree.Lookup(indexPath); n != nil && !n.IsDir() {
			doc, err := s.store.GetOrLoad(indexPath)
			if err == nil {
				page.HTML = doc.HTML
				break
			}
		}
	}
	return page, nil
}

// Children returns the ordered entries of a directory: directories first,
// then files, each sorted by name.
func (s *Service) Children(_ context.Context, path string) ([]TreeItem, error) {
	norm, err := notes.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	nodes := s.tree.Children(norm)
	items := make([]TreeItem, len(nodes))
	for i, n := range nodes {
		items[i] = TreeItem{
			Path:    n.Path,
			Name:    notes.BaseName(n.Path),
			IsDir:   n.IsDir(),
			Size:    n.Size,
			ModTime: n.ModTime,
		}
	}
	return items, nil
}

// Search runs a query against the index. Empty queries return no results.
func (s *Service) Search(_ context.Context, query string) []search.Result {
	return s.index.Query(query)
}

// TreeList returns every markdown note path, for MCP listing.
func (s *Service) TreeList(_ context.Context, dir string) ([]string, error) {
	norm, err := notes.NormalizePath(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range s.tree.Paths() {
		if !notes.IsMarkdown(p) {
			continue
		}
		if node := s.tree.Lookup(p); node == nil || node.IsDir() {
			continue
		}
		if norm != "" && !strings.HasPrefix(p, norm+"/") {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
