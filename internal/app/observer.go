package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyleking/gh-runtail/internal/engine"
	"github.com/kyleking/gh-runtail/internal/logs"
	"github.com/kyleking/gh-runtail/internal/resource"
)

// Changes is the engine state accumulated since the TUI last looked.
type Changes struct {
	Status      string
	IsError     bool
	StatusSet   bool
	Resources   []resource.Resource
	ResourceSet bool
	View        []logs.Record
	ViewSet     bool
	Labels      []string
	LabelsSet   bool
	Export      *logs.Artifact
}

// EngineUpdateMsg carries Changes into the bubbletea loop.
type EngineUpdateMsg struct {
	Changes Changes
}

// Bridge is the engine.Observer of the TUI. Engine goroutines never block on
// it: notifications are coalesced and the program drains them with Wait.
type Bridge struct {
	mu      sync.Mutex
	pending Changes
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

var (
	_ engine.Observer = (*Bridge)(nil)
	_ Controller      = (*engine.Engine)(nil)
)

// NewBridge creates a bridge with nothing pending.
func NewBridge() *Bridge {
	return &Bridge{notify: make(chan struct{}, 1), done: make(chan struct{})}
}

func (b *Bridge) update(apply func(c *Changes)) {
	b.mu.Lock()
	apply(&b.pending)
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// OnStatusChange implements engine.Observer.
func (b *Bridge) OnStatusChange(message string, isError bool) {
	b.update(func(c *Changes) {
		c.Status, c.IsError, c.StatusSet = message, isError, true
	})
}

// OnResourcesUpdated implements engine.Observer.
func (b *Bridge) OnResourcesUpdated(resources []resource.Resource) {
	b.update(func(c *Changes) {
		c.Resources, c.ResourceSet = resources, true
	})
}

// OnViewUpdated implements engine.Observer.
func (b *Bridge) OnViewUpdated(records []logs.Record) {
	b.update(func(c *Changes) {
		c.View, c.ViewSet = records, true
	})
}

// OnLabelsUpdated implements engine.Observer.
func (b *Bridge) OnLabelsUpdated(labels []string) {
	b.update(func(c *Changes) {
		c.Labels, c.LabelsSet = labels, true
	})
}

// OnExportReady implements engine.Observer.
func (b *Bridge) OnExportReady(artifact logs.Artifact) {
	b.update(func(c *Changes) {
		c.Export = &artifact
	})
}

// Take returns and clears the pending changes.
func (b *Bridge) Take() Changes {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.pending
	b.pending = Changes{}
	return c
}

// Wait returns a command that blocks until the engine reports something. The
// command yields nil once the bridge is closed.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.notify:
			return EngineUpdateMsg{Changes: b.Take()}
		case <-b.done:
			return nil
		}
	}
}

// Close releases a pending Wait.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}
