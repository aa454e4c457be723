// Package notes holds the in-memory model of the notes directory: the
// path tree, parsed documents, and the content cache.
package notes

import (
	"fmt"
	"path"
	"strings"

	"github.com/divanvisagie/para-notes/internal/apperr"
)

// NormalizePath cleans a relative note path into its canonical form:
// slash-separated, no leading "./" or trailing "/", never absolute, never
// containing ".." segments. The empty string names the root.
func NormalizePath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("notes: absolute path %q: %w", p, apperr.ErrInvalidPath)
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("notes: path %q escapes root: %w", p, apperr.ErrInvalidPath)
	}
	return cleaned, nil
}

// ParentPath returns the parent of a normalized path ("" for top-level entries).
func ParentPath(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

// BaseName returns the last element of a normalized path.
func BaseName(p string) string {
	return path.Base(p)
}

// IsMarkdown reports whether the path names a markdown note.
func IsMarkdown(p string) bool {
	return strings.HasSuffix(p, ".md")
}

// TitleFromPath derives a display title from the filename without extension.
func TitleFromPath(p string) string {
	base := path.Base(p)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
