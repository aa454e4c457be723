package notes

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// NodeKind distinguishes files from directories in the tree.
type NodeKind int

const (
	// KindFile is a regular file entry.
	KindFile NodeKind = iota
	// KindDir is a directory entry.
	KindDir
)

// TreeNode is one filesystem entry in the notes tree. Directories hold
// references to children by path, never content.
type TreeNode struct {
	Path     string    `json:"path"`
	Kind     NodeKind  `json:"kind"`
	Size     int64     `json:"size,omitempty"`
	ModTime  time.Time `json:"mod_time"`
	Children []string  `json:"children,omitempty"`
}

// IsDir reports whether the node is a directory.
func (n *TreeNode) IsDir() bool { return n.Kind == KindDir }

// IgnoreFunc reports whether a relative path should be excluded from the tree.
type IgnoreFunc func(rel string) bool

// Tree is the canonical mapping of note paths to tree nodes. All methods
// are safe for concurrent use; each mutation is atomic from a reader's
// perspective.
type Tree struct {
	mu    sync.RWMutex
	nodes map[string]*TreeNode
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[string]*TreeNode)}
}

// Rebuild replaces the whole tree with a fresh recursive scan of root.
// ignore (optional) filters entries out; symlinked directories are resolved
// and visited at most once so link loops cannot recurse forever.
func (t *Tree) Rebuild(root string, ignore IgnoreFunc) error {
	nodes := make(map[string]*TreeNode)
	nodes[""] = &TreeNode{Path: "", Kind: KindDir}

	visited := make(map[string]bool)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return fmt.Errorf("notes: scan root: %w", walkErr)
			}
			// A single unreadable entry must not abort the rebuild.
			return nil
		}
		if p == root {
			real, rErr := filepath.EvalSymlinks(p)
			if rErr == nil {
				visited[real] = true
			}
			return nil
		}
		rel, rErr := filepath.Rel(root, p)
		if rErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ignore != nil && ignore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			// Resolve the real path to detect symlink cycles.
			real, rErr := filepath.EvalSymlinks(p)
			if rErr != nil {
				return filepath.SkipDir
			}
			if visited[real] {
				return filepath.SkipDir
			}
			visited[real] = true
		}
		info, iErr := d.Info()
		if iErr != nil {
			return nil
		}
		node := &TreeNode{Path: rel, ModTime: info.ModTime()}
		if d.IsDir() {
			node.Kind = KindDir
		} else {
			node.Kind = KindFile
			node.Size = info.Size()
		}
		nodes[rel] = node
		parent := nodes[ParentPath(rel)]
		if parent != nil {
			parent.Children = append(parent.Children, rel)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, n := range nodes {
		sortChildren(nodes, n)
	}

	t.mu.Lock()
	t.nodes = nodes
	t.mu.Unlock()
	return nil
}

// Upsert inserts or refreshes a single entry, creating any missing parent
// directories along the way so the parent/child linkage stays intact.
func (t *Tree) Upsert(path string, kind NodeKind, size int64, modTime time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[path]
	if !ok {
		node = &TreeNode{Path: path}
		t.nodes[path] = node
		t.linkParentLocked(path)
	}
	node.Kind = kind
	node.ModTime = modTime
	if kind == KindFile {
		node.Size = size
	} else {
		node.Size = 0
	}
}

// linkParentLocked attaches path to its parent chain, materialising
// intermediate directories as needed.
func (t *Tree) linkParentLocked(path string) {
	for path != "" {
		parentPath := ParentPath(path)
		parent, ok := t.nodes[parentPath]
		if !ok {
			parent = &TreeNode{Path: parentPath, Kind: KindDir}
			t.nodes[parentPath] = parent
		}
		if !containsChild(parent.Children, path) {
			parent.Children = append(parent.Children, path)
			sortChildren(t.nodes, parent)
		}
		if ok {
			return
		}
		path = parentPath
	}
}

// Remove deletes an entry. Removing a directory removes all descendants.
// It returns the paths of every removed file (not directories), so callers
// can invalidate dependent state per file.
func (t *Tree) Remove(path string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[path]
	if !ok {
		return nil
	}

	var removedFiles []string
	var drop func(n *TreeNode)
	drop = func(n *TreeNode) {
		for _, c := range n.Children {
			if child, ok := t.nodes[c]; ok {
				drop(child)
			}
		}
		delete(t.nodes, n.Path)
		if n.Kind == KindFile {
			removedFiles = append(removedFiles, n.Path)
		}
	}
	drop(node)

	if parent, ok := t.nodes[ParentPath(path)]; ok {
		parent.Children = removeChild(parent.Children, path)
	}
	return removedFiles
}

// Lookup returns the node for path, or nil if absent.
func (t *Tree) Lookup(path string) *TreeNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[path]
	if !ok {
		return nil
	}
	cp := *n
	cp.Children = append([]string(nil), n.Children...)
	return &cp
}

// Children returns the ordered child nodes of a directory: directories
// first, then files, each group sorted by name. This ordering is the
// user-visible tree display contract.
func (t *Tree) Children(path string) []TreeNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	parent, ok := t.nodes[path]
	if !ok || parent.Kind != KindDir {
		return nil
	}
	out := make([]TreeNode, 0, len(parent.Children))
	for _, c := range parent.Children {
		if child, ok := t.nodes[c]; ok {
			cp := *child
			cp.Children = append([]string(nil), child.Children...)
			out = append(out, cp)
		}
	}
	return out
}

// Paths returns every indexed path (files and directories, root excluded).
func (t *Tree) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.nodes))
	for p := range t.nodes {
		if p != "" {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of entries, root excluded.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes) - 1
}

func sortChildren(nodes map[string]*TreeNode, n *TreeNode) {
	sort.Slice(n.Children, func(i, j int) bool {
		a, b := nodes[n.Children[i]], nodes[n.Children[j]]
		if a == nil || b == nil {
			return n.Children[i] < n.Children[j]
		}
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return BaseName(a.Path) < BaseName(b.Path)
	})
}

func containsChild(children []string, path string) bool {
	for _, c := range children {
		if c == path {
			return true
		}
	}
	return false
}

func removeChild(children []string, path string) []string {
	out := children[:0]
	for _, c := range children {
		if c != path {
			out = append(out, c)
		}
	}
	return out
}
