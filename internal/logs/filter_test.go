package logs

import (
	"fmt"
	"slices"
	"testing"
)

func sampleRecords() []Record {
	return []Record{
		{Sequence: 0, Label: "build", Content: "step1"},
		{Sequence: 1, Label: "", Content: "no-prefix line"},
		{Sequence: 2, Label: "build", Content: "step2"},
		{Sequence: 3, Label: "test", Content: "Running STEP tests"},
		{Sequence: 4, Label: "test", Content: "done"},
	}
}

func sequences(records []Record) []int {
	seqs := make([]int, len(records))
	for i, r := range records {
		seqs[i] = r.Sequence
	}
	return seqs
}

func TestRecompute(t *testing.T) {
	tests := []struct {
		name   string
		search string
		label  string
		want   []int
	}{
		{"no filter", "", AllLabels, []int{0, 1, 2, 3, 4}},
		{"label only", "", "build", []int{0, 2}},
		{"label and search", "step2", "build", []int{2}},
		{"search case insensitive", "step", AllLabels, []int{0, 2, 3}},
		{"search upper", "STEP1", AllLabels, []int{0}},
		{"unknown label", "", "deploy", []int{}},
		{"no match", "missing", AllLabels, []int{}},
		{"search on bare line", "prefix", AllLabels, []int{1}},
		{"unlabelled only", "", NoLabel, []int{1}},
		{"unlabelled with search", "step", NoLabel, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sequences(Recompute(sampleRecords(), tt.search, tt.label))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Recompute(%q, %q): got %v, want %v", tt.search, tt.label, got, tt.want)
			}
		})
	}
}

func TestRecompute_SearchDoesNotMatchLabel(t *testing.T) {
	got := Recompute(sampleRecords(), "build", AllLabels)
	if len(got) != 0 {
		t.Errorf("search must only look at content, got %v", sequences(got))
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	records := sampleRecords()
	first := Recompute(records, "step", "build")
	second := Recompute(records, "step", "build")
	if !slices.Equal(first, second) {
		t.Errorf("recompute not idempotent: %v vs %v", first, second)
	}
	if !slices.Equal(records, sampleRecords()) {
		t.Error("recompute modified its input")
	}
}

func TestRecompute_StablePrefix(t *testing.T) {
	records := sampleRecords()
	for k := 0; k <= len(records); k++ {
		head := Recompute(records[:k], "step", AllLabels)
		tail := Recompute(records[k:], "step", AllLabels)
		joined := append(slices.Clone(head), tail...)
		whole := Recompute(records, "step", AllLabels)
		if !slices.Equal(joined, whole) {
			t.Errorf("split at %d: got %v, want %v", k, sequences(joined), sequences(whole))
		}
	}
}

func TestDistinctLabels(t *testing.T) {
	records := []Record{
		{Label: "test"},
		{Label: ""},
		{Label: "build"},
		{Label: "test"},
		{Label: "deploy"},
	}
	got := DistinctLabels(records)
	want := []string{"test", "build", "deploy"}
	if !slices.Equal(got, want) {
		t.Errorf("DistinctLabels: got %v, want %v", got, want)
	}

	if labels := DistinctLabels(nil); len(labels) != 0 {
		t.Errorf("expected no labels, got %v", labels)
	}
}

func TestFilterConfig(t *testing.T) {
	cfg := NewFilterConfig()
	if !cfg.IsEmpty() {
		t.Error("new config should match everything")
	}

	cfg.Label = "build"
	if cfg.IsEmpty() {
		t.Error("config with label should not be empty")
	}
	if got := sequences(cfg.Apply(sampleRecords())); !slices.Equal(got, []int{0, 2}) {
		t.Errorf("Apply: got %v", got)
	}
}

func TestMatchPositions(t *testing.T) {
	tests := []struct {
		content string
		term    string
		want    []MatchPosition
	}{
		{"Build build BUILD", "build", []MatchPosition{{0, 5}, {6, 11}, {12, 17}}},
		{"aaaa", "aa", []MatchPosition{{0, 2}, {2, 4}}},
		{"nothing", "x", nil},
		{"anything", "", nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.content, tt.term), func(t *testing.T) {
			got := MatchPositions(tt.content, tt.term)
			if !slices.Equal(got, tt.want) {
				t.Errorf("MatchPositions: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIndex_SetRecordsAndFilters(t *testing.T) {
	ix := NewIndex()

	if changed := ix.SetRecords(sampleRecords()); !changed {
		t.Error("expected labels to change on first records")
	}
	if got := ix.Labels(); !slices.Equal(got, []string{"build", "test"}) {
		t.Errorf("labels: got %v", got)
	}
	if changed := ix.SetRecords(sampleRecords()[:4]); changed {
		t.Error("labels did not change")
	}

	ix.SetLabel("build")
	if got := sequences(ix.View()); !slices.Equal(got, []int{0, 2}) {
		t.Errorf("label view: got %v", got)
	}

	ix.SetSearch("step2")
	if got := sequences(ix.View()); !slices.Equal(got, []int{2}) {
		t.Errorf("search view: got %v", got)
	}
	if ix.Text() != "[build] step2" {
		t.Errorf("Text: got %q", ix.Text())
	}
	if ix.Total() != 4 {
		t.Errorf("Total: got %d, want 4", ix.Total())
	}

	cfg := ix.Config()
	if cfg.Label != "build" || cfg.SearchTerm != "step2" {
		t.Errorf("Config: got %+v", cfg)
	}
}
