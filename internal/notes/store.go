package notes

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/divanvisagie/para-notes/internal/apperr"
	"github.com/divanvisagie/para-notes/internal/storage"
)

// Store lazily loads and caches parsed documents keyed by note path.
// Invalidation drops the cached entry; the next access reloads from disk.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	gen   map[string]uint64 // bumped by Invalidate/Put to fence in-flight loads
	files storage.Provider
}

// NewStore creates a content store backed by the given storage provider.
func NewStore(files storage.Provider) *Store {
	return &Store{
		docs:  make(map[string]*Document),
		gen:   make(map[string]uint64),
		files: files,
	}
}

// GetOrLoad returns the cached document for path, loading and parsing it
// on first access. Non-UTF-8 content yields apperr.ErrEncoding; the caller
// decides whether that fails the operation or just empties the index entry.
func (s *Store) GetOrLoad(path string) (*Document, error) {
	s.mu.RLock()
	doc, ok := s.docs[path]
	gen := s.gen[path]
	s.mu.RUnlock()
	if ok {
		return doc, nil
	}

	data, err := s.files.Read(path)
	if err != nil {
		return nil, err
	}
	doc, err = buildDocument(path, data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// An Invalidate or Put that ran while the file was being read makes
	// this load stale: serve it to the caller, but keep it out of the
	// cache so a removed path cannot retain a document.
	if s.gen[path] == gen {
		s.docs[path] = doc
	}
	s.mu.Unlock()
	return doc, nil
}

// Put parses data and caches the resulting document without touching disk.
// The edit path uses it so a save is visible before any watcher round-trip.
func (s *Store) Put(path string, data []byte) (*Document, error) {
	doc, err := buildDocument(path, data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.docs[path] = doc
	s.gen[path]++
	s.mu.Unlock()
	return doc, nil
}

// Invalidate drops the cached document for path.
func (s *Store) Invalidate(path string) {
	s.mu.Lock()
	delete(s.docs, path)
	s.gen[path]++
	s.mu.Unlock()
}

// Cached returns the cached document for path without loading, or nil.
func (s *Store) Cached(path string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[path]
}

func buildDocument(path string, data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("notes: %s: %w", path, apperr.ErrEncoding)
	}
	raw := string(data)
	html, err := Render(raw)
	if err != nil {
		return nil, err
	}

	// Tokenize covers wikilink targets too: "[" and "|" are separators,
	// so the words inside [[...]] land in the token set at their real
	// offsets.
	return &Document{
		Path:     path,
		Title:    DeriveTitle(path, raw),
		Raw:      data,
		HTML:     html,
		Tokens:   Tokenize(raw),
		Checksum: storage.Checksum(data),
	}, nil
}
