package modal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-runtail/internal/logs"
	"github.com/kyleking/gh-runtail/internal/ui"
)

// RunState is what the status dialog shows about the followed run.
type RunState struct {
	RunID      string
	HasSession bool
	Session    logs.Session
	Labels     []string
	LastStatus string
	LastError  bool
}

// RunStatusModal displays the stream session of the followed run.
type RunStatusModal struct {
	state RunState
	done  bool
	keys  runStatusKeyMap
}

type runStatusKeyMap struct {
	Close key.Binding
}

func defaultRunStatusKeyMap() runStatusKeyMap {
	return runStatusKeyMap{
		Close: key.NewBinding(key.WithKeys("esc", "q", "s")),
	}
}

// NewRunStatusModal creates a new run status modal.
func NewRunStatusModal(state RunState) *RunStatusModal {
	return &RunStatusModal{
		state: state,
		keys:  defaultRunStatusKeyMap(),
	}
}

// UpdateState updates the state displayed in the modal.
func (m *RunStatusModal) UpdateState(state RunState) {
	m.state = state
}

// Update handles input for the run status modal.
func (m *RunStatusModal) Update(msg tea.Msg) (Context, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Close) {
		m.done = true
	}
	return m, nil
}

// View renders the run status modal.
func (m *RunStatusModal) View() string {
	var s strings.Builder

	runID := m.state.RunID
	if runID == "" {
		runID = "(none)"
	}
	s.WriteString(ui.TitleStyle.Render("Run: " + runID))
	s.WriteString("\n\n")

	if !m.state.HasSession {
		s.WriteString(ui.SubtitleStyle.Render("No active log session"))
		s.WriteString("\n")
	} else {
		sess := m.state.Session
		s.WriteString(fmt.Sprintf("%s %s\n", sessionStatusIcon(sess.Status), sess.Status))
		s.WriteString(fmt.Sprintf("Records:  %d\n", len(sess.Records)))
		s.WriteString(fmt.Sprintf("Streamed: %t\n", sess.ReceivedAny))
		if sess.RawBatch != "" {
			s.WriteString("Source:   batch fallback\n")
		}
		if len(m.state.Labels) > 0 {
			s.WriteString("Labels:   " + strings.Join(m.state.Labels, ", ") + "\n")
		}
		if sess.Err != nil {
			s.WriteString("\n")
			s.WriteString(ui.ErrorStyle.Render("Error: " + sess.Err.Error()))
			s.WriteString("\n")
		}
	}

	if m.state.LastStatus != "" {
		s.WriteString("\n")
		style := ui.SubtitleStyle
		if m.state.LastError {
			style = ui.ErrorStyle
		}
		s.WriteString(style.Render(m.state.LastStatus))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(ui.HelpStyle.Render("Press Esc or q to close"))

	return s.String()
}

// IsDone returns true if the modal is finished.
func (m *RunStatusModal) IsDone() bool {
	return m.done
}

// Result returns nil for run status modal.
func (m *RunStatusModal) Result() any {
	return nil
}

func sessionStatusIcon(status logs.Status) string {
	switch status {
	case logs.StatusStreaming:
		return "*"
	case logs.StatusStreamedEmpty, logs.StatusFetchingFallback:
		return "~"
	case logs.StatusDone:
		return "+"
	case logs.StatusErrored:
		return "x"
	default:
		return "o"
	}
}
