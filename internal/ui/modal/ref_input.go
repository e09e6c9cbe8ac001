package modal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-runtail/internal/ui"
)

// TriggerResultMsg is sent when the trigger dialog is confirmed.
type TriggerResultMsg struct {
	WorkflowID string
	Ref        string
	Inputs     map[string]string
}

const maxSuggestions = 5

// TriggerModal asks for the ref and inputs of a workflow dispatch. Recent refs
// are offered as suggestions.
type TriggerModal struct {
	workflowID  string
	title       string
	refInput    textinput.Model
	inputsInput textinput.Model
	suggestions []string
	selected    int // -1 when the typed value is used
	focusInputs bool
	err         string
	result      *TriggerResultMsg
	done        bool
	keys        triggerKeyMap
}

type triggerKeyMap struct {
	Cancel  key.Binding
	Confirm key.Binding
	Next    key.Binding
	Up      key.Binding
	Down    key.Binding
}

func defaultTriggerKeyMap() triggerKeyMap {
	return triggerKeyMap{
		Cancel:  key.NewBinding(key.WithKeys("esc")),
		Confirm: key.NewBinding(key.WithKeys("enter")),
		Next:    key.NewBinding(key.WithKeys("tab", "shift+tab")),
		Up:      key.NewBinding(key.WithKeys("up", "ctrl+p")),
		Down:    key.NewBinding(key.WithKeys("down", "ctrl+n")),
	}
}

// NewTriggerModal creates the dialog for workflowID. defaultRef pre-fills the
// ref field.
func NewTriggerModal(workflowID, workflowName, defaultRef string, recentRefs []string) *TriggerModal {
	refInput := textinput.New()
	refInput.Placeholder = "main"
	refInput.CharLimit = 200
	refInput.SetValue(defaultRef)
	refInput.Focus()

	inputsInput := textinput.New()
	inputsInput.Placeholder = "key=value, key2=value2"
	inputsInput.CharLimit = 500

	return &TriggerModal{
		workflowID:  workflowID,
		title:       workflowName,
		refInput:    refInput,
		inputsInput: inputsInput,
		suggestions: recentRefs,
		selected:    -1,
		keys:        defaultTriggerKeyMap(),
	}
}

// Update handles input for the trigger dialog.
func (m *TriggerModal) Update(msg tea.Msg) (Context, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Cancel):
		m.done = true
		return m, nil

	case key.Matches(keyMsg, m.keys.Confirm):
		return m.confirm()

	case key.Matches(keyMsg, m.keys.Next):
		m.focusInputs = !m.focusInputs
		if m.focusInputs {
			m.refInput.Blur()
			return m, m.inputsInput.Focus()
		}
		m.inputsInput.Blur()
		return m, m.refInput.Focus()

	case !m.focusInputs && key.Matches(keyMsg, m.keys.Up):
		if m.selected >= 0 {
			m.selected--
		}
		return m, nil

	case !m.focusInputs && key.Matches(keyMsg, m.keys.Down):
		if m.selected < len(m.visibleSuggestions())-1 {
			m.selected++
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focusInputs {
		m.inputsInput, cmd = m.inputsInput.Update(msg)
	} else {
		m.refInput, cmd = m.refInput.Update(msg)
		m.selected = -1
	}
	return m, cmd
}

func (m *TriggerModal) confirm() (Context, tea.Cmd) {
	ref := strings.TrimSpace(m.refInput.Value())
	if suggestions := m.visibleSuggestions(); m.selected >= 0 && m.selected < len(suggestions) {
		ref = suggestions[m.selected]
	}
	if ref == "" {
		m.err = "ref is required"
		return m, nil
	}
	inputs, err := ParseInputs(m.inputsInput.Value())
	if err != nil {
		m.err = err.Error()
		return m, nil
	}
	m.result = &TriggerResultMsg{WorkflowID: m.workflowID, Ref: ref, Inputs: inputs}
	m.done = true
	return m, nil
}

// visibleSuggestions lists recent refs matching the typed prefix.
func (m *TriggerModal) visibleSuggestions() []string {
	typed := strings.TrimSpace(m.refInput.Value())
	var out []string
	for _, ref := range m.suggestions {
		if typed == "" || (strings.HasPrefix(ref, typed) && ref != typed) {
			out = append(out, ref)
		}
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// View renders the trigger dialog.
func (m *TriggerModal) View() string {
	var s strings.Builder
	s.WriteString(ui.TitleStyle.Render("Trigger " + m.title))
	s.WriteString("\n\n")
	s.WriteString(ui.SubtitleStyle.Render("Ref:    "))
	s.WriteString(m.refInput.View())
	s.WriteString("\n")

	for i, ref := range m.visibleSuggestions() {
		if i == m.selected {
			s.WriteString(ui.SelectedStyle.Render("  > " + ref))
		} else {
			s.WriteString(ui.TableDimmedStyle.Render("    " + ref))
		}
		s.WriteString("\n")
	}

	s.WriteString(ui.SubtitleStyle.Render("Inputs: "))
	s.WriteString(m.inputsInput.View())
	s.WriteString("\n")

	if m.err != "" {
		s.WriteString("\n")
		s.WriteString(ui.ErrorStyle.Render(m.err))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(ui.HelpStyle.Render("[enter] trigger  [tab] field  [↑↓] recent refs  [esc] cancel"))
	return s.String()
}

// IsDone returns true if the modal is finished.
func (m *TriggerModal) IsDone() bool {
	return m.done
}

// Result returns the confirmed trigger, or nil when cancelled.
func (m *TriggerModal) Result() any {
	if m.result == nil {
		return nil
	}
	return *m.result
}

// ParseInputs reads "key=value" pairs separated by commas.
func ParseInputs(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	inputs := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid input %q: want key=value", pair)
		}
		inputs[k] = strings.TrimSpace(v)
	}
	return inputs, nil
}

// FormatInputs is the inverse of ParseInputs with keys sorted.
func FormatInputs(inputs map[string]string) string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + inputs[k]
	}
	return strings.Join(parts, ", ")
}
