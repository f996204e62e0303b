package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultKey holds the floor date used for datasets that have no entry yet.
const DefaultKey = "DEFAULT"

// ErrNotFound is returned when no date is recorded for a dataset.
var ErrNotFound = errors.New("no last update date recorded for dataset")

// StateFile is a concurrency-safe map of dataset name to last processed
// update date, persisted as a flat JSON file.
type StateFile struct {
	mu sync.RWMutex

	path  string
	dates map[string]time.Time
}

// OpenState loads the state file at path. A missing file yields a state that
// only holds the DEFAULT floor.
func OpenState(path string, defaultDate time.Time) (*StateFile, error) {
	s := &StateFile{
		path:  path,
		dates: map[string]time.Time{DefaultKey: defaultDate.UTC()},
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", path, err)
	}

	var stored map[string]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", path, err)
	}
	for name, v := range stored {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("state %s: entry %q: %w", path, name, err)
		}
		s.dates[name] = ts.UTC()
	}

	return s, nil
}

// Get returns the recorded date for name, falling back to the DEFAULT floor.
func (s *StateFile) Get(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ts, ok := s.dates[name]; ok {
		return ts
	}
	return s.dates[DefaultKey]
}

// Lookup returns the date recorded for name without the DEFAULT fallback.
func (s *StateFile) Lookup(name string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.dates[name]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return ts, nil
}

// Set records the last processed update date for name.
func (s *StateFile) Set(name string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dates[name] = ts.UTC()
}

// Snapshot returns a copy of all recorded dates.
func (s *StateFile) Snapshot() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]time.Time, len(s.dates))
	for k, v := range s.dates {
		out[k] = v
	}
	return out
}

// Save writes the state atomically to its file.
func (s *StateFile) Save() error {
	s.mu.RLock()
	stored := make(map[string]string, len(s.dates))
	for name, ts := range s.dates {
		stored[name] = ts.Format(time.RFC3339)
	}
	s.mu.RUnlock()

	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}
