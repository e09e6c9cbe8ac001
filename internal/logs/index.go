package logs

import (
	"slices"
	"sync"
)

// Index keeps the record set of the active run together with the current
// filter inputs and derives the view from them. It only reads records; the
// Streamer owns them.
type Index struct {
	mu      sync.RWMutex
	records []Record
	config  FilterConfig
	view    []Record
	labels  []string
}

// NewIndex creates an empty index that matches everything.
func NewIndex() *Index {
	return &Index{config: *NewFilterConfig()}
}

// SetRecords replaces the record set and recomputes the view. It reports
// whether the distinct label list changed.
func (ix *Index) SetRecords(records []Record) (labelsChanged bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.records = records
	labels := DistinctLabels(records)
	labelsChanged = !slices.Equal(labels, ix.labels)
	ix.labels = labels
	ix.recompute()
	return labelsChanged
}

// SetSearch updates the search text and recomputes the view.
func (ix *Index) SetSearch(term string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.config.SearchTerm = term
	ix.recompute()
}

// SetLabel updates the label filter and recomputes the view.
func (ix *Index) SetLabel(label string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.config.Label = label
	ix.recompute()
}

func (ix *Index) recompute() {
	ix.view = ix.config.Apply(ix.records)
}

// Config returns the current filter inputs.
func (ix *Index) Config() FilterConfig {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.config
}

// View returns the filtered records. The slice must not be modified.
func (ix *Index) View() []Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.view
}

// Labels returns the labels observed so far in first-seen order.
func (ix *Index) Labels() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.labels
}

// Total returns the size of the unfiltered record set.
func (ix *Index) Total() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Text renders the current view as raw log text.
func (ix *Index) Text() string {
	return Render(ix.View())
}
