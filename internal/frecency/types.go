// Package frecency remembers which workflow and ref pairs were triggered so
// the operator is offered the most frequent and recent ones first.
package frecency

import (
	"sync"
	"time"
)

// Store holds trigger history keyed by endpoint namespace.
type Store struct {
	mu      sync.Mutex
	Entries map[string][]HistoryEntry `yaml:"entries"`
}

// HistoryEntry is one workflow and ref combination that has been triggered.
type HistoryEntry struct {
	WorkflowID string    `yaml:"workflow_id"`
	Ref        string    `yaml:"ref"`
	RunCount   int       `yaml:"run_count"`
	LastRunAt  time.Time `yaml:"last_run_at"`
	LastRunID  string    `yaml:"last_run_id,omitempty"`
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		Entries: make(map[string][]HistoryEntry),
	}
}
