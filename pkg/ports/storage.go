package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Storage when a file or directory is absent.
var ErrNotFound = errors.New("storage: not found")

// Entry describes one member of a directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// Storage is the hierarchical namespace the story lives in. Paths are
// slash-separated and relative to the story root. Implementations must make
// WriteFile an atomic full replacement: readers never observe a partially
// written file, on success or failure.
type Storage interface {
	// List enumerates the entries of a directory. A missing directory
	// returns ErrNotFound.
	List(ctx context.Context, dir string) ([]Entry, error)

	// EnsureDir creates the directory (and parents) if it does not exist.
	EnsureDir(ctx context.Context, dir string) error

	// ReadFile returns the full contents of a file, or ErrNotFound.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile atomically replaces the full contents of a file, creating
	// it if necessary.
	WriteFile(ctx context.Context, path string, data []byte) error
}
