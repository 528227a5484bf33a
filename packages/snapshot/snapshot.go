// Package snapshot records response bodies and compares later responses
// against them.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/go-cmp/cmp"
)

const (
	// SnapshotDir is the directory name for storing snapshots
	SnapshotDir = "__snapshots__"
	// SnapshotExt is the file extension for snapshot files
	SnapshotExt = ".snap.json"
)

// DefaultPath is where a shell keeps its snapshots unless told otherwise.
var DefaultPath = filepath.Join(SnapshotDir, "hitshell"+SnapshotExt)

// Store holds named snapshots, backed by a JSON file when it has a path.
type Store struct {
	mu         sync.Mutex
	path       string
	updateMode bool
	snapshots  map[string]any
}

// Option configures a Store.
type Option func(*Store)

// WithUpdate makes mismatches and missing snapshots overwrite the stored
// value instead of failing.
func WithUpdate(update bool) Option {
	return func(s *Store) {
		s.updateMode = update
	}
}

// NewStore returns a store saved at path. An empty path keeps snapshots in
// memory only.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Result represents the result of a snapshot comparison.
type Result struct {
	Name       string
	Passed     bool
	Message    string
	Expected   any
	Actual     any
	Diff       string
	IsNew      bool
	WasUpdated bool
}

// Compare checks actual against the snapshot stored under name. A missing
// snapshot is recorded, so the first comparison always passes; a mismatch
// fails unless the store is in update mode.
func (s *Store) Compare(name string, actual any) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &Result{Name: name, Actual: actual}

	if err := s.load(); err != nil {
		result.Message = fmt.Sprintf("failed to load snapshots: %v", err)
		return result
	}

	normalized, err := normalize(actual)
	if err != nil {
		result.Message = fmt.Sprintf("value cannot be stored: %v", err)
		return result
	}

	expected, exists := s.snapshots[name]
	if !exists {
		if err := s.save(name, normalized); err != nil {
			result.Message = fmt.Sprintf("failed to save snapshot: %v", err)
			return result
		}
		result.Passed = true
		result.IsNew = true
		result.Expected = normalized
		result.Message = "new snapshot created"
		return result
	}

	result.Expected = expected
	diff := cmp.Diff(expected, normalized)
	if diff == "" {
		result.Passed = true
		return result
	}

	if s.updateMode {
		if err := s.save(name, normalized); err != nil {
			result.Message = fmt.Sprintf("failed to update snapshot: %v", err)
			return result
		}
		result.Passed = true
		result.WasUpdated = true
		result.Message = "snapshot updated"
		return result
	}

	result.Diff = diff
	result.Message = "snapshot mismatch (-stored +actual):\n" + diff
	return result
}

// Delete forgets the snapshot called name and reports whether it existed.
func (s *Store) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return false, err
	}
	if _, ok := s.snapshots[name]; !ok {
		return false, nil
	}
	delete(s.snapshots, name)
	return true, s.flush()
}

// load reads the backing file once.
func (s *Store) load() error {
	if s.snapshots != nil {
		return nil
	}
	snapshots := make(map[string]any)
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if err == nil {
			if err := json.Unmarshal(data, &snapshots); err != nil {
				return fmt.Errorf("%s: %w", s.path, err)
			}
		}
	}
	s.snapshots = snapshots
	return nil
}

func (s *Store) save(name string, value any) error {
	s.snapshots[name] = value
	return s.flush()
}

func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.snapshots, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, append(data, '\n'), 0644)
}

// normalize round-trips v through JSON so stored and fresh values compare
// with the same types.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
