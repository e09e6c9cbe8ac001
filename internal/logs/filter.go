package logs

import "strings"

const (
	// AllLabels is the label filter value that disables label filtering.
	// It cannot select lines without a label; use NoLabel for those.
	AllLabels = ""
	// NoLabel is the label filter value that keeps only lines without a
	// label. Log lines never carry a NUL byte, so no parsed label equals it.
	NoLabel = "\x00"
)

// FilterConfig holds the inputs of the derived view.
type FilterConfig struct {
	SearchTerm string
	Label      string
}

// NewFilterConfig creates a config that matches everything.
func NewFilterConfig() *FilterConfig {
	return &FilterConfig{SearchTerm: "", Label: AllLabels}
}

// IsEmpty reports whether the config lets every record through.
func (c FilterConfig) IsEmpty() bool {
	return c.SearchTerm == "" && c.Label == AllLabels
}

// Recompute returns the records that pass label then search, in their
// original order. Label is an exact match, AllLabels disables it and NoLabel
// matches records without a label; search is
// a case-insensitive substring of the content and "" disables it. The input is
// never modified and equal inputs give equal outputs.
func Recompute(records []Record, search, label string) []Record {
	needle := strings.ToLower(search)
	view := make([]Record, 0, len(records))
	for _, r := range records {
		if !labelMatches(r.Label, label) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(r.Content), needle) {
			continue
		}
		view = append(view, r)
	}
	return view
}

func labelMatches(recordLabel, filter string) bool {
	switch filter {
	case AllLabels:
		return true
	case NoLabel:
		return recordLabel == ""
	default:
		return recordLabel == filter
	}
}

// Apply runs Recompute with the config's inputs.
func (c FilterConfig) Apply(records []Record) []Record {
	return Recompute(records, c.SearchTerm, c.Label)
}

// DistinctLabels returns the non-empty labels in first-seen order.
func DistinctLabels(records []Record) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, r := range records {
		if r.Label == "" {
			continue
		}
		if _, ok := seen[r.Label]; ok {
			continue
		}
		seen[r.Label] = struct{}{}
		labels = append(labels, r.Label)
	}
	return labels
}

// MatchPosition is a byte range of a search hit within content.
type MatchPosition struct {
	Start int
	End   int
}

// MatchPositions finds the non-overlapping case-insensitive occurrences of
// term in content. It returns nil when lower-casing changes the byte length of
// content, since offsets would no longer line up.
func MatchPositions(content, term string) []MatchPosition {
	if term == "" {
		return nil
	}
	haystack := strings.ToLower(content)
	needle := strings.ToLower(term)
	if len(haystack) != len(content) {
		return nil
	}

	var matches []MatchPosition
	offset := 0
	for {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return matches
		}
		start := offset + idx
		matches = append(matches, MatchPosition{Start: start, End: start + len(needle)})
		offset = start + len(needle)
	}
}
