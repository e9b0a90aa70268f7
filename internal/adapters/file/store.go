// Package file implements ports.Storage on the local filesystem.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mooncrowned/storyed/pkg/ports"
)

// Store roots a ports.Storage in one local directory (the story root).
// Writes are atomic full replacements: temp file, fsync, rename.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath. The directory itself is created
// lazily by the first EnsureDir or WriteFile.
func New(basePath string) *Store {
	if basePath == "" {
		basePath = "."
	}
	return &Store{BasePath: basePath}
}

func (s *Store) abs(rel string) string {
	return filepath.Join(s.BasePath, filepath.FromSlash(rel))
}

// List enumerates a directory.
func (s *Store) List(ctx context.Context, dir string) ([]ports.Entry, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory %s: %w", dir, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to list directory %s: %w", dir, err)
	}
	out := make([]ports.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ports.Entry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}

// EnsureDir creates the directory and any missing parents.
func (s *Store) EnsureDir(ctx context.Context, dir string) error {
	if err := os.MkdirAll(s.abs(dir), 0755); err != nil {
		return fmt.Errorf("failed to ensure directory %s: %w", dir, err)
	}
	return nil
}

// ReadFile returns the file's full contents.
func (s *Store) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(s.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", path, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// WriteFile atomically replaces the file's contents.
// It writes to a temporary file first, syncs via fsync, and then renames it
// to the destination.
func (s *Store) WriteFile(ctx context.Context, path string, data []byte) error {
	destPath := s.abs(path)

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to ensure parent directory for %s: %w", path, err)
	}

	// Same directory as the destination, so the rename stays on one
	// filesystem (required for atomicity).
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), "tmp-"+filepath.Base(destPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		// If the rename succeeded the temp file is gone and both calls
		// are harmless no-ops.
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file for %s: %w", path, err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}

	// On Windows, os.Rename fails if the destination exists; the
	// delete+rename window is acceptable compared to a partial write.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing file %s for overwrite: %w", path, err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file into %s: %w", path, err)
	}
	return nil
}
