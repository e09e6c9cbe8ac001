package modal

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-runtail/internal/logs"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	tabKey   = tea.KeyMsg{Type: tea.KeyTab}
	downKey  = tea.KeyMsg{Type: tea.KeyDown}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
)

// indexView adapts logs.Index to LogView.
type indexView struct {
	ix    *logs.Index
	runID string
}

func newIndexView(records []logs.Record) *indexView {
	ix := logs.NewIndex()
	ix.SetRecords(records)
	return &indexView{ix: ix, runID: "7"}
}

func (v *indexView) RunID() string               { return v.runID }
func (v *indexView) View() []logs.Record         { return v.ix.View() }
func (v *indexView) Labels() []string            { return v.ix.Labels() }
func (v *indexView) Filter() logs.FilterConfig   { return v.ix.Config() }
func (v *indexView) Total() int                  { return v.ix.Total() }
func (v *indexView) SetSearch(term string)       { v.ix.SetSearch(term) }
func (v *indexView) SetLabelFilter(label string) { v.ix.SetLabel(label) }

func sampleRecords() []logs.Record {
	return []logs.Record{
		{Sequence: 0, Label: "build", Content: "step1"},
		{Sequence: 1, Label: "", Content: "no-prefix line"},
		{Sequence: 2, Label: "build", Content: "step2"},
		{Sequence: 3, Label: "test", Content: "ok"},
	}
}

func TestParseInputs(t *testing.T) {
	tests := []struct {
		in      string
		want    map[string]string
		wantErr bool
	}{
		{"", nil, false},
		{"env=prod", map[string]string{"env": "prod"}, false},
		{" env = prod , dry_run=true,", map[string]string{"env": "prod", "dry_run": "true"}, false},
		{"empty=", map[string]string{"empty": ""}, false},
		{"novalue", nil, true},
		{"=x", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseInputs(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseInputs(%q) err: got %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseInputs(%q): got %v, want %v", tt.in, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("ParseInputs(%q)[%q]: got %q, want %q", tt.in, k, got[k], v)
			}
		}
	}

	if got := FormatInputs(map[string]string{"b": "2", "a": "1"}); got != "a=1, b=2" {
		t.Errorf("FormatInputs: got %q", got)
	}
}

func TestTriggerModal_TypedRef(t *testing.T) {
	m := NewTriggerModal("42", "CI", "", []string{"main", "release"})
	m.Update(runes("feature/x"))
	m.Update(tabKey)
	m.Update(runes("env=staging"))
	m.Update(enterKey)

	if !m.IsDone() {
		t.Fatal("modal should close on enter")
	}
	res, ok := m.Result().(TriggerResultMsg)
	if !ok {
		t.Fatalf("Result: got %T", m.Result())
	}
	if res.WorkflowID != "42" || res.Ref != "feature/x" || res.Inputs["env"] != "staging" {
		t.Errorf("result: got %+v", res)
	}
}

func TestTriggerModal_SuggestionAndValidation(t *testing.T) {
	m := NewTriggerModal("42", "CI", "", []string{"main", "release"})

	m.Update(enterKey)
	if m.IsDone() {
		t.Fatal("empty ref must not confirm")
	}
	if !strings.Contains(m.View(), "ref is required") {
		t.Error("expected the validation message in the view")
	}

	m.Update(downKey)
	m.Update(downKey)
	m.Update(enterKey)
	res, ok := m.Result().(TriggerResultMsg)
	if !ok || res.Ref != "release" {
		t.Errorf("suggestion: got %+v", m.Result())
	}
}

func TestTriggerModal_Cancel(t *testing.T) {
	m := NewTriggerModal("42", "CI", "main", nil)
	m.Update(escKey)
	if !m.IsDone() || m.Result() != nil {
		t.Errorf("cancel: done=%v result=%v", m.IsDone(), m.Result())
	}
}

func TestStack_PopsWithResult(t *testing.T) {
	s := NewStack()
	s.Push(NewConfirmModal("Cancel run", "Cancel run 9?", "cancel", "9"))
	if !s.HasActive() {
		t.Fatal("expected an active modal")
	}

	cmd := s.Update(runes("y"))
	if s.HasActive() {
		t.Error("modal should be popped")
	}
	if cmd == nil {
		t.Fatal("expected a result command")
	}
	msgs := []tea.Msg{cmd()}
	if batch, ok := msgs[0].(tea.BatchMsg); ok {
		msgs = msgs[:0]
		for _, c := range batch {
			if c != nil {
				msgs = append(msgs, c())
			}
		}
	}
	var found bool
	for _, msg := range msgs {
		if res, ok := msg.(ConfirmResultMsg); ok {
			found = res.Action == "cancel" && res.Target == "9" && res.Value
		}
	}
	if !found {
		t.Error("confirm result not delivered")
	}
}

func TestStack_DeclineSendsNothing(t *testing.T) {
	s := NewStack()
	s.Push(NewConfirmModal("Re-run", "Re-run 9?", "rerun", "9"))
	if cmd := s.Update(runes("n")); cmd != nil {
		t.Errorf("declined confirm should send nothing, got %v", cmd)
	}
}

func TestLogsViewer_TabsAndSearch(t *testing.T) {
	view := newIndexView(sampleRecords())
	m := NewLogsViewerModal(view, 100, 40)

	if got := len(m.records); got != 4 {
		t.Fatalf("records: got %d, want 4", got)
	}

	m.Update(tabKey)
	if view.Filter().Label != "build" {
		t.Errorf("tab should select the first label, got %q", view.Filter().Label)
	}
	if len(m.records) != 2 {
		t.Errorf("build records: got %d", len(m.records))
	}

	m.Update(runes("/"))
	m.Update(runes("step2"))
	m.Update(enterKey)
	if view.Filter().SearchTerm != "step2" {
		t.Errorf("search term: got %q", view.Filter().SearchTerm)
	}
	if len(m.records) != 1 || m.records[0].Sequence != 2 {
		t.Errorf("records: got %+v", m.records)
	}
	if len(m.matchLines) != 1 {
		t.Errorf("match lines: got %v", m.matchLines)
	}

	m.Update(runes("x"))
	if view.Filter().SearchTerm != "" {
		t.Errorf("clear search: got %q", view.Filter().SearchTerm)
	}

	// Wraps from the last label back to all labels.
	m.Update(tabKey)
	m.Update(tabKey)
	if view.Filter().Label != logs.AllLabels {
		t.Errorf("wrap: got %q", view.Filter().Label)
	}
}

func TestLogsViewer_ExportAndCopy(t *testing.T) {
	m := NewLogsViewerModal(newIndexView(sampleRecords()), 100, 40)

	_, cmd := m.Update(runes("e"))
	if cmd == nil {
		t.Fatal("expected an export command")
	}
	if _, ok := cmd().(ExportRequestedMsg); !ok {
		t.Error("expected ExportRequestedMsg")
	}

	_, cmd = m.Update(runes("y"))
	if _, ok := cmd().(CopyRequestedMsg); !ok {
		t.Error("expected CopyRequestedMsg")
	}

	m.Update(runes("q"))
	if !m.IsDone() {
		t.Error("q should close the viewer")
	}
}

func TestLogsViewer_EmptyView(t *testing.T) {
	m := NewLogsViewerModal(newIndexView(nil), 80, 30)
	if !strings.Contains(m.View(), "No logs yet") {
		t.Error("expected the empty placeholder")
	}
}

func TestHighlightMatches(t *testing.T) {
	content := "Build build"
	got := highlightMatches(content, logs.MatchPositions(content, "build"))
	if !strings.Contains(got, "Build") || !strings.Contains(got, "build") {
		t.Errorf("highlight lost text: %q", got)
	}
}
