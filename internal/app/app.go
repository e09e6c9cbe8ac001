// Package app is the bubbletea front end of the engine.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/cli/go-gh/v2/pkg/browser"

	"github.com/kyleking/gh-runtail/internal/frecency"
	"github.com/kyleking/gh-runtail/internal/logs"
	"github.com/kyleking/gh-runtail/internal/resource"
	"github.com/kyleking/gh-runtail/internal/rpc"
	"github.com/kyleking/gh-runtail/internal/ui"
	"github.com/kyleking/gh-runtail/internal/ui/modal"
	"github.com/kyleking/gh-runtail/internal/ui/panes"
)

// Controller is the engine surface the TUI drives.
type Controller interface {
	modal.LogView
	Methods() rpc.Methods
	RefreshResources(ctx context.Context) ([]resource.Resource, error)
	TriggerAndFollow(ctx context.Context, workflowID, ref string, inputs map[string]string) (json.RawMessage, error)
	Watch(runID string) error
	Cancel(ctx context.Context, runID string) (json.RawMessage, error)
	Rerun(ctx context.Context, runID string) (json.RawMessage, error)
	Session() (logs.Session, bool)
	Export() logs.Artifact
	Stop()
}

// URLOpener opens a web page.
type URLOpener interface {
	Browse(url string) error
}

// Options configures the TUI.
type Options struct {
	Engine Controller
	Bridge *Bridge

	History     *frecency.Store
	HistoryFile string
	ExportDir   string
	// RepoURL is the web URL of the repository, used to open runs. Empty
	// disables opening.
	RepoURL     string
	DefaultRef  string
	CallTimeout time.Duration

	Browser   URLOpener
	Clipboard func(text string) error
	Logger    *log.Logger
}

// FocusedPane represents which pane currently has focus.
type FocusedPane int

const (
	PaneWorkflows FocusedPane = iota
	PaneRuns
	PaneHistory
	paneCount
)

// Model is the root bubbletea model for the application.
type Model struct {
	opts    Options
	engine  Controller
	bridge  *Bridge
	history *frecency.Store
	logger  *log.Logger

	focused   FocusedPane
	workflows panes.ResourceModel
	runs      panes.ResourceModel
	recent    panes.HistoryModel

	filterInput textinput.Model
	filtering   bool

	status    string
	statusErr bool

	modalStack *modal.Stack

	width  int
	height int
	keys   KeyMap
}

type actionDoneMsg struct {
	action string
	err    error
}

type triggerDoneMsg struct {
	workflowID string
	ref        string
	err        error
}

type exportDoneMsg struct {
	path string
	err  error
}

type copyDoneMsg struct {
	name string
	err  error
}

// New creates a new application model.
func New(opts Options) Model {
	if opts.Bridge == nil {
		opts.Bridge = NewBridge()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.Browser == nil {
		opts.Browser = browser.New("", io.Discard, io.Discard)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.DefaultRef == "" {
		opts.DefaultRef = "main"
	}

	filterInput := textinput.New()
	filterInput.Placeholder = "fuzzy filter"
	filterInput.CharLimit = 80

	m := Model{
		opts:        opts,
		engine:      opts.Engine,
		bridge:      opts.Bridge,
		history:     opts.History,
		logger:      opts.Logger,
		focused:     PaneWorkflows,
		workflows:   panes.NewResourceModel("Workflows", resource.TypeWorkflow),
		runs:        panes.NewResourceModel("Runs", resource.TypeWorkflowRun),
		recent:      panes.NewHistoryModel(),
		filterInput: filterInput,
		modalStack:  modal.NewStack(),
		keys:        DefaultKeyMap(),
	}
	m.syncFocus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.bridge.Wait(), m.refreshCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EngineUpdateMsg:
		m.applyChanges(msg.Changes)
		return m, m.bridge.Wait()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.modalStack.SetSize(msg.Width, msg.Height)
		m.layout()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.logger.Warn("action failed", "action", msg.action, "err", msg.err)
		}
		return m, nil

	case triggerDoneMsg:
		return m.handleTriggerDone(msg)

	case exportDoneMsg:
		if msg.err != nil {
			m.setStatus("Export failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("Logs written to "+msg.path, false)
		}
		return m, nil

	case copyDoneMsg:
		if msg.err != nil {
			m.setStatus("Copy failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("Copied "+msg.name+" to the clipboard.", false)
		}
		return m, nil

	case modal.TriggerResultMsg:
		return m, m.triggerCmd(msg)

	case modal.ConfirmResultMsg:
		return m.handleConfirmResult(msg)

	case modal.ExportRequestedMsg:
		return m, m.exportCmd()

	case modal.CopyRequestedMsg:
		return m, m.copyCmd()
	}

	if m.modalStack.HasActive() {
		return m.updateModal(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.filtering {
			return m.handleFilterInput(msg)
		}
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m Model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.modalStack.Update(msg)
	return m, cmd
}

func (m *Model) applyChanges(c Changes) {
	if c.StatusSet {
		m.setStatus(c.Status, c.IsError)
	}
	if c.ResourceSet {
		m.workflows.SetResources(c.Resources)
		m.runs.SetResources(c.Resources)
		m.refreshHistory()
	}
	if c.Export != nil {
		m.logger.Debug("export ready", "name", c.Export.Name, "bytes", len(c.Export.Content))
	}
	if !c.ViewSet && !c.LabelsSet && !c.StatusSet {
		return
	}
	switch top := m.modalStack.Top().(type) {
	case *modal.LogsViewerModal:
		top.Refresh()
		top.SetStatus(m.status, m.statusErr)
	case *modal.RunStatusModal:
		top.UpdateState(m.runState())
	}
}

func (m *Model) setStatus(status string, isError bool) {
	m.status = status
	m.statusErr = isError
	if top, ok := m.modalStack.Top().(*modal.LogsViewerModal); ok {
		top.SetStatus(status, isError)
	}
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.bridge.Close()
		m.engine.Stop()
		m.saveHistory()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.modalStack.Push(modal.NewHelpModal(m.keys.Bindings()))
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.focused = (m.focused + 1) % paneCount
		m.syncFocus()
		return m, nil

	case key.Matches(msg, m.keys.ShiftTab):
		m.focused = (m.focused + paneCount - 1) % paneCount
		m.syncFocus()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.handleUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.handleDown()
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		return m.handleEnter()

	case key.Matches(msg, m.keys.Filter):
		if m.focused == PaneWorkflows || m.focused == PaneRuns {
			m.filtering = true
			m.filterInput.SetValue(m.focusedResources().Filter())
			return m, m.filterInput.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		m.openLogsViewer()
		return m, nil

	case key.Matches(msg, m.keys.Status):
		m.modalStack.Push(modal.NewRunStatusModal(m.runState()))
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Cancel):
		return m.confirmRunAction("cancel", "Cancel run")

	case key.Matches(msg, m.keys.Rerun):
		return m.confirmRunAction("rerun", "Re-run")

	case key.Matches(msg, m.keys.Open):
		return m.openRun()

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCmd()

	case key.Matches(msg, m.keys.Stop):
		m.engine.Stop()
		m.setStatus("Stopped following.", false)
		return m, nil
	}

	return m, nil
}

func (m Model) handleFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filterInput.Blur()
		m.focusedResources().SetFilter("")
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.focusedResources().SetFilter(m.filterInput.Value())
	if m.focused == PaneWorkflows {
		m.refreshHistory()
	}
	return m, cmd
}

func (m *Model) focusedResources() *panes.ResourceModel {
	if m.focused == PaneRuns {
		return &m.runs
	}
	return &m.workflows
}

func (m *Model) syncFocus() {
	m.workflows.SetFocused(m.focused == PaneWorkflows)
	m.runs.SetFocused(m.focused == PaneRuns)
	m.recent.SetFocused(m.focused == PaneHistory)
}

func (m *Model) handleUp() {
	switch m.focused {
	case PaneWorkflows:
		m.workflows.MoveUp()
		m.refreshHistory()
	case PaneRuns:
		m.runs.MoveUp()
	case PaneHistory:
		m.recent.MoveUp()
	}
}

func (m *Model) handleDown() {
	switch m.focused {
	case PaneWorkflows:
		m.workflows.MoveDown()
		m.refreshHistory()
	case PaneRuns:
		m.runs.MoveDown()
	case PaneHistory:
		m.recent.MoveDown()
	}
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.focused {
	case PaneWorkflows:
		wf := m.workflows.Selected()
		if wf == nil {
			return m, nil
		}
		m.openTriggerModal(*wf, "")
	case PaneHistory:
		wf := m.workflows.Selected()
		entry := m.recent.SelectedEntry()
		if wf == nil || entry == nil {
			return m, nil
		}
		m.openTriggerModal(*wf, entry.Ref)
	case PaneRuns:
		run := m.runs.Selected()
		if run == nil {
			return m, nil
		}
		if err := m.engine.Watch(run.BareID()); err != nil {
			return m, nil
		}
		m.openLogsViewer()
	}
	return m, nil
}

func (m *Model) openTriggerModal(wf resource.Resource, ref string) {
	refs := m.recentRefs(wf.BareID())
	if ref == "" {
		ref = m.opts.DefaultRef
		if len(refs) > 0 {
			ref = refs[0]
		}
	}
	if !_contains(refs, m.opts.DefaultRef) {
		refs = append(refs, m.opts.DefaultRef)
	}
	m.modalStack.Push(modal.NewTriggerModal(wf.BareID(), wf.DisplayName(), ref, refs))
}

func (m *Model) openLogsViewer() {
	viewer := modal.NewLogsViewerModal(m.engine, m.width, m.height)
	viewer.SetStatus(m.status, m.statusErr)
	m.modalStack.Push(viewer)
}

func (m Model) confirmRunAction(action, title string) (tea.Model, tea.Cmd) {
	runID := m.targetRunID()
	if runID == "" {
		m.setStatus("Select a run first.", true)
		return m, nil
	}
	m.modalStack.Push(modal.NewConfirmModal(title, fmt.Sprintf("%s %s?", title, runID), action, runID))
	return m, nil
}

// targetRunID prefers the selected run and falls back to the followed one.
func (m Model) targetRunID() string {
	if m.focused == PaneRuns {
		if run := m.runs.Selected(); run != nil {
			return run.BareID()
		}
	}
	return m.engine.RunID()
}

func (m Model) handleConfirmResult(msg modal.ConfirmResultMsg) (tea.Model, tea.Cmd) {
	if !msg.Value {
		return m, nil
	}
	runID := msg.Target
	eng := m.engine
	timeout := m.opts.CallTimeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var err error
		switch msg.Action {
		case "cancel":
			_, err = eng.Cancel(ctx, runID)
		case "rerun":
			_, err = eng.Rerun(ctx, runID)
		}
		return actionDoneMsg{action: msg.Action, err: err}
	}
}

func (m Model) openRun() (tea.Model, tea.Cmd) {
	runID := m.targetRunID()
	if runID == "" || m.opts.RepoURL == "" {
		m.setStatus("No run page to open.", true)
		return m, nil
	}
	url := m.opts.RepoURL + "/actions/runs/" + runID
	opener := m.opts.Browser
	return m, func() tea.Msg {
		return actionDoneMsg{action: "open", err: opener.Browse(url)}
	}
}

func (m Model) handleTriggerDone(msg triggerDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, nil
	}
	m.refreshHistory()
	m.saveHistory()
	if _, ok := m.modalStack.Top().(*modal.LogsViewerModal); !ok {
		m.openLogsViewer()
	}
	return m, nil
}

func (m Model) refreshCmd() tea.Cmd {
	eng := m.engine
	timeout := m.opts.CallTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := eng.RefreshResources(ctx)
		return actionDoneMsg{action: "refresh", err: err}
	}
}

func (m Model) triggerCmd(req modal.TriggerResultMsg) tea.Cmd {
	eng := m.engine
	timeout := m.opts.CallTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := eng.TriggerAndFollow(ctx, req.WorkflowID, req.Ref, req.Inputs)
		return triggerDoneMsg{workflowID: req.WorkflowID, ref: req.Ref, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	eng := m.engine
	dir := m.opts.ExportDir
	return func() tea.Msg {
		path, err := eng.Export().WriteFile(dir)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m Model) copyCmd() tea.Cmd {
	eng := m.engine
	write := m.opts.Clipboard
	return func() tea.Msg {
		artifact := eng.Export()
		return copyDoneMsg{name: artifact.Name, err: write(artifact.Content)}
	}
}

func (m Model) runState() modal.RunState {
	sess, ok := m.engine.Session()
	return modal.RunState{
		RunID:      m.engine.RunID(),
		HasSession: ok,
		Session:    sess,
		Labels:     m.engine.Labels(),
		LastStatus: m.status,
		LastError:  m.statusErr,
	}
}

func (m Model) recentRefs(workflowID string) []string {
	if m.history == nil {
		return nil
	}
	return m.history.Refs(m.engine.Methods().Namespace, workflowID, time.Now())
}

func (m *Model) refreshHistory() {
	if m.history == nil {
		return
	}
	wf := m.workflows.Selected()
	if wf == nil {
		m.recent.SetEntries(nil, "")
		return
	}
	m.recent.SetEntries(m.history.Top(m.engine.Methods().Namespace, wf.BareID(), 10, time.Now()), wf.DisplayName())
}

func (m Model) saveHistory() {
	if m.history == nil || m.opts.HistoryFile == "" {
		return
	}
	if err := m.history.Save(m.opts.HistoryFile); err != nil {
		m.logger.Warn("could not save trigger history", "path", m.opts.HistoryFile, "err", err)
	}
}

func (m *Model) layout() {
	statusHeight := 3
	body := max(m.height-statusHeight, 6)
	topHeight := body / 2
	bottomHeight := body - topHeight

	leftWidth := (m.width * 11) / 30
	rightWidth := m.width - leftWidth

	m.workflows.SetSize(leftWidth, topHeight)
	m.recent.SetSize(rightWidth, topHeight)
	m.runs.SetSize(m.width, bottomHeight)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, m.workflows.View(), m.recent.View())
	screen := lipgloss.JoinVertical(lipgloss.Left, top, m.runs.View(), m.viewStatusBar())

	if m.modalStack.HasActive() {
		return m.modalStack.Render(screen)
	}

	return screen
}

func (m Model) viewStatusBar() string {
	var line string
	switch {
	case m.filtering:
		line = ui.SubtitleStyle.Render("Filter: ") + m.filterInput.View()
	case m.status != "":
		style := ui.StatusStyle
		if m.statusErr {
			style = ui.ErrorStyle.Padding(0, 1)
		}
		line = style.Render(_wordWrap(m.status, max(m.width-2, 10)))
	}

	runID := m.engine.RunID()
	if runID != "" {
		line = ui.TableDimmedStyle.Render("run "+runID+"  ") + line
	}

	help := ui.HelpStyle.Render("[enter] trigger/watch  [l] logs  [/] filter  [c] cancel  [R] re-run  [o] open  [?] help  [q] quit")
	return line + "\n" + help
}
