package frecency

import (
	"sort"
	"time"
)

// Score calculates the frecency score for an entry at time now.
// Higher scores indicate more frequently and recently used entries.
func Score(entry HistoryEntry, now time.Time) float64 {
	hoursSince := now.Sub(entry.LastRunAt).Hours()
	var recency float64
	switch {
	case hoursSince < 1:
		recency = 4.0
	case hoursSince < 24:
		recency = 2.0
	case hoursSince < 168: // 1 week
		recency = 1.0
	default:
		recency = 0.5
	}
	return float64(entry.RunCount) * recency
}

// SortByFrecency sorts entries by frecency score in descending order.
func SortByFrecency(entries []HistoryEntry, now time.Time) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Score(entries[i], now) > Score(entries[j], now)
	})
}

// FilterByWorkflow returns entries for the given workflow id.
func FilterByWorkflow(entries []HistoryEntry, workflowID string) []HistoryEntry {
	if workflowID == "" {
		return entries
	}
	var filtered []HistoryEntry
	for _, e := range entries {
		if e.WorkflowID == workflowID {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
