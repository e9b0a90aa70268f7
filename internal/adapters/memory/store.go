// Package memory implements ports.Storage in memory, for tests.
package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/mooncrowned/storyed/pkg/ports"
)

// Store is an in-memory hierarchical namespace. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	files    map[string][]byte
	dirs     map[string]bool
	writeErr error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		files: make(map[string][]byte),
		dirs:  map[string]bool{".": true},
	}
}

func clean(p string) string {
	c := path.Clean("/" + p)
	return strings.TrimPrefix(c, "/")
}

// List enumerates the direct children of dir.
func (s *Store) List(ctx context.Context, dir string) ([]ports.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := clean(dir)
	if d != "" && !s.dirs[d] {
		return nil, fmt.Errorf("directory %s: %w", dir, ports.ErrNotFound)
	}

	prefix := d
	if prefix != "" {
		prefix += "/"
	}
	names := make(map[string]bool)
	var out []ports.Entry
	add := func(name string, isDir bool) {
		if !names[name] {
			names[name] = true
			out = append(out, ports.Entry{Name: name, IsDir: isDir})
		}
	}
	for f := range s.files {
		if rest, ok := strings.CutPrefix(f, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			add(rest, false)
		}
	}
	for sub := range s.dirs {
		if rest, ok := strings.CutPrefix(sub, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			add(rest, true)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// EnsureDir creates the directory and its parents.
func (s *Store) EnsureDir(ctx context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := clean(dir)
	for d != "" && d != "." {
		s.dirs[d] = true
		d = path.Dir(d)
		if d == "." {
			break
		}
	}
	return nil
}

// ReadFile returns a copy of the file's contents.
func (s *Store) ReadFile(ctx context.Context, p string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[clean(p)]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", p, ports.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// WriteFile replaces the file's contents. Parent directories are created
// implicitly, mirroring how EnsureDir precedes writes in real use.
func (s *Store) WriteFile(ctx context.Context, p string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	cp := clean(p)
	parent := path.Dir(cp)
	for parent != "" && parent != "." {
		s.dirs[parent] = true
		parent = path.Dir(parent)
	}
	cpy := make([]byte, len(data))
	copy(cpy, data)
	s.files[cp] = cpy
	return nil
}

// FailWrites makes every subsequent WriteFile fail with the given error
// until called with nil. Tests use it to simulate storage failures.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}
