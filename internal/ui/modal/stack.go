// Package modal holds the overlay dialogs of the TUI.
package modal

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kyleking/gh-runtail/internal/ui"
)

// Context is one modal on the stack.
type Context interface {
	Update(msg tea.Msg) (Context, tea.Cmd)
	View() string
	IsDone() bool
	// Result is sent as a tea.Msg when the modal closes. nil sends nothing.
	Result() any
}

// Fullscreen modals are rendered without the centered frame.
type Fullscreen interface {
	Fullscreen() bool
}

// Stack manages nested modals. Only the top one receives input.
type Stack struct {
	modals []Context
	width  int
	height int
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push opens m on top of the stack.
func (s *Stack) Push(m Context) {
	s.modals = append(s.modals, m)
}

// HasActive reports whether a modal is open.
func (s *Stack) HasActive() bool {
	return len(s.modals) > 0
}

// Top returns the active modal or nil.
func (s *Stack) Top() Context {
	if len(s.modals) == 0 {
		return nil
	}
	return s.modals[len(s.modals)-1]
}

// SetSize records the terminal size and forwards it to every modal.
func (s *Stack) SetSize(width, height int) {
	s.width = width
	s.height = height
	for i, m := range s.modals {
		s.modals[i], _ = m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	}
}

// Update routes msg to the top modal and pops it once it is done.
func (s *Stack) Update(msg tea.Msg) tea.Cmd {
	top := s.Top()
	if top == nil {
		return nil
	}
	next, cmd := top.Update(msg)
	s.modals[len(s.modals)-1] = next
	if !next.IsDone() {
		return cmd
	}

	s.modals = s.modals[:len(s.modals)-1]
	result := next.Result()
	if result == nil {
		return cmd
	}
	return tea.Batch(cmd, func() tea.Msg { return result })
}

// Render draws the top modal over background.
func (s *Stack) Render(background string) string {
	top := s.Top()
	if top == nil {
		return background
	}
	if fs, ok := top.(Fullscreen); ok && fs.Fullscreen() {
		return top.View()
	}
	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ui.PrimaryColor).
		Padding(1, 2).
		Render(top.View())
	if s.width == 0 || s.height == 0 {
		return box
	}
	return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, box)
}
