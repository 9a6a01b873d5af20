// Package store keeps the most recent lint results per file, one slice per
// (file, linter) pair. Deliver callbacks write here; reporters, the status
// tracker and the LSP diagnostics publisher read from it.
package store

import (
	"slices"
	"sync"

	"github.com/wharflab/relint/internal/finding"
)

// Store is a mutex-guarded map of filename to per-linter findings. Every
// delivery replaces one linter's slice wholesale, so the store always
// reflects the latest completed run per linter.
type Store struct {
	mu    sync.RWMutex
	files map[string]map[string][]*finding.Finding
}

func New() *Store {
	return &Store{files: make(map[string]map[string][]*finding.Finding)}
}

// Update replaces the findings one linter reported for a file. An empty
// slice clears the linter's entry; a file whose last entry clears is
// dropped entirely.
func (s *Store) Update(filename, linter string, findings []*finding.Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byLinter, ok := s.files[filename]
	if len(findings) == 0 {
		if ok {
			delete(byLinter, linter)
			if len(byLinter) == 0 {
				delete(s.files, filename)
			}
		}
		return
	}
	if !ok {
		byLinter = make(map[string][]*finding.Finding)
		s.files[filename] = byLinter
	}
	byLinter[linter] = slices.Clone(findings)
}

// File returns every linter's findings for a file flattened into one slice
// sorted by document position. The slice is freshly allocated on each call.
func (s *Store) File(filename string) []*finding.Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byLinter, ok := s.files[filename]
	if !ok {
		return nil
	}
	var out []*finding.Finding
	for _, fs := range byLinter {
		out = append(out, fs...)
	}
	finding.Sort(out)
	return out
}

// Files returns the sorted names of all files with at least one finding.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clear drops everything known about a file.
func (s *Store) Clear(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, filename)
}
