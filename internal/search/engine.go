// Package search implements the in-memory inverted index over note content.
package search

import (
	"sort"
	"strings"
	"sync"

	"github.com/divanvisagie/para-notes/internal/notes"
)

// Relevance weights. Exact title matches always outrank title token
// matches, which always outrank body token matches.
const (
	scoreExactTitle = 1000
	scoreTitleToken = 10
	scoreBodyToken  = 1
)

// Result is one search hit.
type Result struct {
	Path    string  `json:"path"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// docEntry holds everything the engine keeps per indexed document.
// Reindexing replaces the whole entry, never merges into it.
type docEntry struct {
	title       string
	titleLower  string
	titleTokens map[string]struct{}
	firstOffset map[string]int // body token → first byte offset
	body        string         // raw text, for snippet extraction
}

// Engine maps tokens to the documents containing them. All methods are
// safe for concurrent use; a query running concurrently with a reindex
// sees either the old or the new entry for a path, never a mix.
type Engine struct {
	mu         sync.RWMutex
	maxResults int
	index      map[string]map[string]struct{} // token → set of paths
	docs       map[string]*docEntry           // path → entry
}

// NewEngine creates an empty engine capped at maxResults hits per query.
func NewEngine(maxResults int) *Engine {
	if maxResults <= 0 {
		maxResults = 20
	}
	return &Engine{
		maxResults: maxResults,
		index:      make(map[string]map[string]struct{}),
		docs:       make(map[string]*docEntry),
	}
}

// Reindex replaces all index entries for doc.Path with entries built from
// the current document.
func (e *Engine) Reindex(doc *notes.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.removeLocked(doc.Path)

	entry := &docEntry{
		title:       doc.Title,
		titleLower:  strings.ToLower(doc.Title),
		titleTokens: make(map[string]struct{}),
		firstOffset: make(map[string]int),
		body:        string(doc.Raw),
	}
	for _, t := range notes.Tokenize(doc.Title) {
		entry.titleTokens[t.Text] = struct{}{}
	}
	for _, t := range doc.Tokens {
		if _, seen := entry.firstOffset[t.Text]; !seen {
			entry.firstOffset[t.Text] = t.Offset
		}
		paths, ok := e.index[t.Text]
		if !ok {
			paths = make(map[string]struct{})
			e.index[t.Text] = paths
		}
		paths[doc.Path] = struct{}{}
	}
	// Title tokens are searchable even when the title never repeats in
	// the body (filename-derived titles).
	for tok := range entry.titleTokens {
		paths, ok := e.index[tok]
		if !ok {
			paths = make(map[string]struct{})
			e.index[tok] = paths
		}
		paths[doc.Path] = struct{}{}
	}

	e.docs[doc.Path] = entry
}

// Remove deletes all index entries for path.
func (e *Engine) Remove(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeLocked(path)
}

func (e *Engine) removeLocked(path string) {
	entry, ok := e.docs[path]
	if !ok {
		return
	}
	for tok := range entry.firstOffset {
		e.dropTokenLocked(tok, path)
	}
	for tok := range entry.titleTokens {
		e.dropTokenLocked(tok, path)
	}
	delete(e.docs, path)
}

func (e *Engine) dropTokenLocked(tok, path string) {
	paths, ok := e.index[tok]
	if !ok {
		return
	}
	delete(paths, path)
	if len(paths) == 0 {
		delete(e.index, tok)
	}
}

// Query runs a case-insensitive token match over titles and bodies and
// returns ranked results: exact title match first, then title token
// matches, then body token matches, ties broken by path order. An empty
// query returns no results, not an error.
func (e *Engine) Query(text string) []Result {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil
	}
	queryLower := strings.ToLower(query)
	terms := notes.Tokenize(queryLower)
	if len(terms) == 0 {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	// Candidate set: union of paths matching any term.
	candidates := make(map[string]struct{})
	for _, term := range terms {
		for p := range e.index[term.Text] {
			candidates[p] = struct{}{}
		}
	}
	// Substring title matches can hit documents no token matches (for
	// example a query spanning punctuation in the title).
	for p, entry := range e.docs {
		if strings.Contains(entry.titleLower, queryLower) {
			candidates[p] = struct{}{}
		}
	}

	results := make([]Result, 0, len(candidates))
	for p := range candidates {
		entry := e.docs[p]
		if entry == nil {
			continue
		}
		var score float64
		if entry.titleLower == queryLower {
			score += scoreExactTitle
		} else if strings.Contains(entry.titleLower, queryLower) {
			score += scoreTitleToken
		}
		snippetAt := -1
		for _, term := range terms {
			if _, ok := entry.titleTokens[term.Text]; ok {
				score += scoreTitleToken
			}
			if off, ok := entry.firstOffset[term.Text]; ok {
				score += scoreBodyToken
				if snippetAt < 0 || off < snippetAt {
					snippetAt = off
				}
			}
		}
		if score == 0 {
			continue
		}
		results = append(results, Result{
			Path:    p,
			Title:   entry.title,
			Snippet: snippet(entry.body, snippetAt, queryLower),
			Score:   score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	if len(results) > e.maxResults {
		results = results[:e.maxResults]
	}
	return results
}

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}
