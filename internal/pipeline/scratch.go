package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Scratch is a request-owned working directory. Every file created for the
// request is tracked so Cleanup can remove it exactly once.
type Scratch struct {
	dir string

	mu    sync.Mutex
	paths []string
	seen  map[string]struct{}
}

// NewScratch creates dir and returns a Scratch rooted there.
func NewScratch(dir string) (*Scratch, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Scratch{dir: dir, seen: make(map[string]struct{})}, nil
}

// Dir returns the scratch directory.
func (s *Scratch) Dir() string { return s.dir }

// Path returns name inside the scratch directory and tracks it.
func (s *Scratch) Path(name string) string {
	p := filepath.Join(s.dir, name)
	s.Track(p)
	return p
}

// Track records paths for removal. Duplicates are ignored.
func (s *Scratch) Track(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, ok := s.seen[p]; ok {
			continue
		}
		s.seen[p] = struct{}{}
		s.paths = append(s.paths, p)
	}
}

// Paths returns the tracked paths in tracking order.
func (s *Scratch) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Cleanup removes every tracked file, then the directory itself. Files that
// were never written are not errors.
func (s *Scratch) Cleanup() error {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.seen = make(map[string]struct{})
	s.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(s.dir); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
