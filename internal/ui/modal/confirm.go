package modal

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-runtail/internal/ui"
)

// ConfirmResultMsg carries the answer of a ConfirmModal.
type ConfirmResultMsg struct {
	Action string
	Target string
	Value  bool
}

// ConfirmModal asks a yes/no question about an action on target.
type ConfirmModal struct {
	title   string
	message string
	action  string
	target  string
	value   bool
	done    bool
	keys    confirmKeyMap
}

type confirmKeyMap struct {
	Yes    key.Binding
	No     key.Binding
	Cancel key.Binding
}

// NewConfirmModal creates a confirmation dialog.
func NewConfirmModal(title, message, action, target string) *ConfirmModal {
	return &ConfirmModal{
		title:   title,
		message: message,
		action:  action,
		target:  target,
		keys: confirmKeyMap{
			Yes:    key.NewBinding(key.WithKeys("y", "Y", "enter")),
			No:     key.NewBinding(key.WithKeys("n", "N")),
			Cancel: key.NewBinding(key.WithKeys("esc", "q")),
		},
	}
}

// Update handles input for the confirmation dialog.
func (m *ConfirmModal) Update(msg tea.Msg) (Context, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Yes):
			m.value = true
			m.done = true
		case key.Matches(keyMsg, m.keys.No), key.Matches(keyMsg, m.keys.Cancel):
			m.value = false
			m.done = true
		}
	}
	return m, nil
}

// View renders the confirmation dialog.
func (m *ConfirmModal) View() string {
	return ui.TitleStyle.Render(m.title) + "\n\n" +
		ui.NormalStyle.Render(m.message) + "\n\n" +
		ui.HelpStyle.Render("[y] yes  [n] no")
}

// IsDone returns true if the modal is finished.
func (m *ConfirmModal) IsDone() bool {
	return m.done
}

// Result returns the answer. Declined confirmations send nothing.
func (m *ConfirmModal) Result() any {
	if !m.value {
		return nil
	}
	return ConfirmResultMsg{Action: m.action, Target: m.target, Value: true}
}
