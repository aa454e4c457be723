// Package watcher turns raw filesystem notifications into a debounced
// stream of semantic change events for the notes root.
package watcher

// Op is the semantic kind of a change event.
type Op int

const (
	// Created means a new file or directory appeared.
	Created Op = iota
	// Modified means an existing file's content changed.
	Modified
	// Removed means a file or directory disappeared.
	Removed
	// Renamed means a file moved from OldPath to Path. The watcher itself
	// reports OS renames as Removed+Created (fsnotify only sees the old
	// path); Renamed events come from explicit move operations.
	Renamed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangeEvent is one semantic filesystem change, consumed exactly once by
// the sync coordinator.
type ChangeEvent struct {
	Op      Op
	Path    string
	OldPath string // Renamed only
}
