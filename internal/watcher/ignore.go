package watcher

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/divanvisagie/para-notes/internal/notes"
)

// DefaultIgnorePatterns excludes hidden entries, editor swap files, and the
// temp files produced by atomic saves.
var DefaultIgnorePatterns = []string{
	"**/.*",
	"**/*~",
	"**/*.swp",
	"**/*.swx",
	"**/*.tmp",
	"**/.para-tmp-*",
}

// Matcher decides whether a relative path is excluded from indexing and
// watching, based on doublestar glob patterns.
type Matcher struct {
	patterns []string
}

// NewMatcher compiles the given patterns, falling back to the defaults when
// none are configured. Invalid patterns are dropped.
func NewMatcher(patterns []string) *Matcher {
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns
	}
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if doublestar.ValidatePattern(p) {
			valid = append(valid, p)
		}
	}
	return &Matcher{patterns: valid}
}

// Ignored reports whether rel or any of its ancestors matches an ignore
// pattern, so content inside an ignored directory is ignored too.
func (m *Matcher) Ignored(rel string) bool {
	for p := rel; p != ""; p = notes.ParentPath(p) {
		for _, pattern := range m.patterns {
			if ok, _ := doublestar.Match(pattern, p); ok {
				return true
			}
		}
	}
	return false
}
