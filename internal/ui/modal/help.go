package modal

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-runtail/internal/ui"
)

// HelpModal lists key bindings.
type HelpModal struct {
	bindings []key.Binding
	done     bool
}

// NewHelpModal creates a help dialog for bindings.
func NewHelpModal(bindings []key.Binding) *HelpModal {
	return &HelpModal{bindings: bindings}
}

// Update closes the dialog on any key.
func (m *HelpModal) Update(msg tea.Msg) (Context, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		m.done = true
	}
	return m, nil
}

// View renders the binding table.
func (m *HelpModal) View() string {
	var s strings.Builder
	s.WriteString(ui.TitleStyle.Render("Keys"))
	s.WriteString("\n\n")
	for _, b := range m.bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		s.WriteString(ui.SelectedStyle.Render(ui.PadRight(h.Key, 12)))
		s.WriteString(ui.NormalStyle.Render(h.Desc))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(ui.HelpStyle.Render("Press any key to close"))
	return s.String()
}

// IsDone returns true if the modal is finished.
func (m *HelpModal) IsDone() bool {
	return m.done
}

// Result returns nil.
func (m *HelpModal) Result() any {
	return nil
}
