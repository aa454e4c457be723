// Package storage defines the notes directory file-system abstraction.
package storage

import "io/fs"

// Provider is the interface for notes directory file operations.
// All paths are relative to the notes root and slash-separated.
type Provider interface {
	// Read returns the exact on-disk bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the content of path (write-then-rename).
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// Root returns the absolute path of the notes root.
	Root() string
}
