package frecency

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// maxEntriesPerKey bounds the history kept for one namespace.
const maxEntriesPerKey = 50

// Record notes a trigger of workflowID on ref.
func (s *Store) Record(key, workflowID, ref string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.Entries[key]
	for i := range entries {
		if entries[i].WorkflowID == workflowID && entries[i].Ref == ref {
			entries[i].RunCount++
			entries[i].LastRunAt = at
			return
		}
	}
	entries = append(entries, HistoryEntry{WorkflowID: workflowID, Ref: ref, RunCount: 1, LastRunAt: at})
	if len(entries) > maxEntriesPerKey {
		SortByFrecency(entries, at)
		entries = entries[:maxEntriesPerKey]
	}
	s.Entries[key] = entries
}

// SetLastRun remembers the run resolved for the most recent trigger of
// workflowID on ref.
func (s *Store) SetLastRun(key, workflowID, ref, runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.Entries[key] {
		if e.WorkflowID == workflowID && e.Ref == ref {
			s.Entries[key][i].LastRunID = runID
			return
		}
	}
}

// Top returns up to limit entries for workflowID, best first. An empty
// workflowID matches every workflow; a limit of zero returns all.
func (s *Store) Top(key, workflowID string, limit int, now time.Time) []HistoryEntry {
	s.mu.Lock()
	filtered := FilterByWorkflow(s.Entries[key], workflowID)
	entries := make([]HistoryEntry, len(filtered))
	copy(entries, filtered)
	s.mu.Unlock()

	SortByFrecency(entries, now)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Refs returns the refs used with workflowID, best first.
func (s *Store) Refs(key, workflowID string, now time.Time) []string {
	var refs []string
	for _, e := range s.Top(key, workflowID, 0, now) {
		refs = append(refs, e.Ref)
	}
	return refs
}

// Load reads a store from path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	s := NewStore()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	if s.Entries == nil {
		s.Entries = make(map[string][]HistoryEntry)
	}
	return s, nil
}

// Save writes the store to path, creating parent directories.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	data, err := yaml.Marshal(s)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
