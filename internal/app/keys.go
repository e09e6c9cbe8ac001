package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the bindings of the main screen.
type KeyMap struct {
	Quit     key.Binding
	Help     key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Filter   key.Binding
	Logs     key.Binding
	Status   key.Binding
	Refresh  key.Binding
	Cancel   key.Binding
	Rerun    key.Binding
	Open     key.Binding
	Export   key.Binding
	Copy     key.Binding
	Stop     key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		ShiftTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous pane")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "trigger workflow / watch run")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter pane")),
		Logs:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "show logs")),
		Status:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "session status")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload resources")),
		Cancel:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel run")),
		Rerun:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "re-run run")),
		Open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open run in browser")),
		Export:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export logs to file")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy logs")),
		Stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop following")),
	}
}

// Bindings lists the bindings in help order.
func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{
		k.Enter, k.Logs, k.Status, k.Filter, k.Refresh, k.Cancel, k.Rerun,
		k.Open, k.Export, k.Copy, k.Stop, k.Tab, k.ShiftTab, k.Up, k.Down, k.Help, k.Quit,
	}
}
