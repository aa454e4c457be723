// Package apperr defines the sentinel errors shared across the application.
package apperr

import "errors"

var (
	// ErrNotFound indicates the requested note or directory does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPath indicates a path that escapes the notes root or is
	// otherwise malformed. Operations reject it before touching disk.
	ErrInvalidPath = errors.New("invalid path")
	// ErrEncoding indicates a file that is not valid UTF-8 text. Such files
	// stay in the tree but carry no document content or search tokens.
	ErrEncoding = errors.New("not valid text")
	// ErrWatch indicates the filesystem watch could not be established.
	// Live reload degrades to disabled; everything else keeps working.
	ErrWatch = errors.New("watch unavailable")
	// ErrAlreadyExists indicates a move or create collided with an
	// existing note.
	ErrAlreadyExists = errors.New("already exists")
)
