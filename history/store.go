// Package history keeps past analysis results in a local JSON file, newest first.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"assetlens/asset"
)

// ErrNotFound is returned when no stored result matches an ID
var ErrNotFound = errors.New("result not found in history")

// Store is a bounded list of results persisted as one JSON document
type Store struct {
	path  string
	limit int
	mu    sync.Mutex
}

// Open returns a store backed by path. A limit of 0 keeps every result.
// The file is created on first write.
func Open(path string, limit int) *Store {
	return &Store{path: path, limit: limit}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Load returns every stored result, newest first. A missing file is an empty history.
func (s *Store) Load() ([]asset.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append stores r at the front, replacing any earlier entry with the same ID
func (s *Store) Append(r *asset.AnalysisResult) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("result must have an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.load()
	if err != nil {
		return err
	}

	kept := make([]asset.AnalysisResult, 0, len(results)+1)
	kept = append(kept, *r)
	for _, existing := range results {
		if existing.ID != r.ID {
			kept = append(kept, existing)
		}
	}
	if s.limit > 0 && len(kept) > s.limit {
		kept = kept[:s.limit]
	}

	return s.save(kept)
}

// Get finds a result by ID or unique ID prefix
func (s *Store) Get(id string) (*asset.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.load()
	if err != nil {
		return nil, err
	}

	idx, err := find(results, id)
	if err != nil {
		return nil, err
	}
	return &results[idx], nil
}

// Delete removes a result by ID or unique ID prefix
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.load()
	if err != nil {
		return err
	}

	idx, err := find(results, id)
	if err != nil {
		return err
	}
	return s.save(append(results[:idx], results[idx+1:]...))
}

// Clear removes every stored result
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func find(results []asset.AnalysisResult, id string) (int, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1, ErrNotFound
	}

	match := -1
	for i, r := range results {
		if r.ID == id {
			return i, nil
		}
		if strings.HasPrefix(r.ID, id) {
			if match >= 0 {
				return -1, fmt.Errorf("ID prefix %q is ambiguous", id)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

func (s *Store) load() ([]asset.AnalysisResult, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var results []asset.AnalysisResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("history file %s is corrupt: %w", s.path, err)
	}
	return results, nil
}

// save writes to a temp file and renames it over the old one
func (s *Store) save(results []asset.AnalysisResult) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}
