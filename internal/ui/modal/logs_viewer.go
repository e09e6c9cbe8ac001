package modal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kyleking/gh-runtail/internal/logs"
	"github.com/kyleking/gh-runtail/internal/ui"
)

// LogView is the filtered log state the viewer renders and edits.
type LogView interface {
	RunID() string
	View() []logs.Record
	Labels() []string
	Filter() logs.FilterConfig
	Total() int
	SetSearch(term string)
	SetLabelFilter(label string)
}

// ExportRequestedMsg asks the application to write the displayed logs to a file.
type ExportRequestedMsg struct{}

// CopyRequestedMsg asks the application to copy the displayed logs.
type CopyRequestedMsg struct{}

// LogsViewerModal displays the logs of the active run with label tabs and
// search.
type LogsViewerModal struct {
	source      LogView
	records     []logs.Record
	labels      []string
	filterCfg   logs.FilterConfig
	status      string
	statusErr   bool
	viewport    viewport.Model
	searchInput textinput.Model
	activeTab   int // 0 shows every label
	matchLines  []int
	matchCursor int
	searchMode  bool
	follow      bool
	done        bool
	keys        logsViewerKeyMap
	width       int
	height      int
}

type logsViewerKeyMap struct {
	Close       key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	Search      key.Binding
	ClearSearch key.Binding
	NextMatch   key.Binding
	PrevMatch   key.Binding
	Follow      key.Binding
	Export      key.Binding
	Copy        key.Binding
	ExitSearch  key.Binding
}

func defaultLogsViewerKeyMap() logsViewerKeyMap {
	return logsViewerKeyMap{
		Close:       key.NewBinding(key.WithKeys("esc", "q")),
		NextTab:     key.NewBinding(key.WithKeys("tab", "l", "right")),
		PrevTab:     key.NewBinding(key.WithKeys("shift+tab", "h", "left")),
		Search:      key.NewBinding(key.WithKeys("/")),
		ClearSearch: key.NewBinding(key.WithKeys("x")),
		NextMatch:   key.NewBinding(key.WithKeys("n")),
		PrevMatch:   key.NewBinding(key.WithKeys("N")),
		Follow:      key.NewBinding(key.WithKeys("F")),
		Export:      key.NewBinding(key.WithKeys("e")),
		Copy:        key.NewBinding(key.WithKeys("y")),
		ExitSearch:  key.NewBinding(key.WithKeys("esc")),
	}
}

// NewLogsViewerModal creates a viewer over source.
func NewLogsViewerModal(source LogView, width, height int) *LogsViewerModal {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search logs..."
	searchInput.CharLimit = 100

	m := &LogsViewerModal{
		source:      source,
		viewport:    viewport.New(max(width-4, 1), max(height-10, 1)),
		searchInput: searchInput,
		follow:      true,
		keys:        defaultLogsViewerKeyMap(),
		width:       width,
		height:      height,
	}
	m.Refresh()
	return m
}

// Fullscreen implements Fullscreen.
func (m *LogsViewerModal) Fullscreen() bool { return true }

// SetStatus shows the latest engine status under the title.
func (m *LogsViewerModal) SetStatus(status string, isError bool) {
	m.status = status
	m.statusErr = isError
}

// Refresh re-reads the view from the source.
func (m *LogsViewerModal) Refresh() {
	m.records = m.source.View()
	m.labels = m.source.Labels()
	m.filterCfg = m.source.Filter()

	m.activeTab = 0
	for i, label := range m.labels {
		if label == m.filterCfg.Label {
			m.activeTab = i + 1
		}
	}
	m.updateViewportContent()
}

// Update handles input for the logs viewer modal.
func (m *LogsViewerModal) Update(msg tea.Msg) (Context, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width-4, 1)
		m.viewport.Height = max(msg.Height-10, 1)
		m.updateViewportContent()
		return m, nil

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchInput(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Close):
			m.done = true
			return m, nil

		case key.Matches(msg, m.keys.NextTab):
			m.selectTab(m.activeTab + 1)
			return m, nil

		case key.Matches(msg, m.keys.PrevTab):
			m.selectTab(m.activeTab - 1)
			return m, nil

		case key.Matches(msg, m.keys.Search):
			m.searchMode = true
			m.searchInput.SetValue(m.filterCfg.SearchTerm)
			m.searchInput.Focus()
			return m, textinput.Blink

		case key.Matches(msg, m.keys.ClearSearch):
			m.source.SetSearch("")
			m.Refresh()
			return m, nil

		case key.Matches(msg, m.keys.NextMatch):
			m.jumpToMatch(1)
			return m, nil

		case key.Matches(msg, m.keys.PrevMatch):
			m.jumpToMatch(-1)
			return m, nil

		case key.Matches(msg, m.keys.Follow):
			m.follow = !m.follow
			if m.follow {
				m.viewport.GotoBottom()
			}
			return m, nil

		case key.Matches(msg, m.keys.Export):
			return m, func() tea.Msg { return ExportRequestedMsg{} }

		case key.Matches(msg, m.keys.Copy):
			return m, func() tea.Msg { return CopyRequestedMsg{} }
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	if !m.viewport.AtBottom() {
		m.follow = false
	}
	return m, cmd
}

// handleSearchInput processes input when in search mode.
func (m *LogsViewerModal) handleSearchInput(msg tea.KeyMsg) (Context, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ExitSearch):
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil

	case msg.Type == tea.KeyEnter:
		m.source.SetSearch(m.searchInput.Value())
		m.searchMode = false
		m.searchInput.Blur()
		m.follow = false
		m.Refresh()
		m.matchCursor = -1
		m.jumpToMatch(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// tabLabel returns the label filter behind tab i.
func (m *LogsViewerModal) tabLabel(i int) string {
	if i == 0 {
		return logs.AllLabels
	}
	return m.labels[i-1]
}

func (m *LogsViewerModal) selectTab(i int) {
	n := len(m.labels) + 1
	i = (i + n) % n
	m.source.SetLabelFilter(m.tabLabel(i))
	m.Refresh()
}

// jumpToMatch scrolls to the next (dir > 0) or previous line with a search
// hit, wrapping around.
func (m *LogsViewerModal) jumpToMatch(dir int) {
	if len(m.matchLines) == 0 {
		return
	}
	m.matchCursor = (m.matchCursor + dir + len(m.matchLines)) % len(m.matchLines)
	m.viewport.SetYOffset(m.matchLines[m.matchCursor])
}

// updateViewportContent refreshes the viewport with current filtered logs.
func (m *LogsViewerModal) updateViewportContent() {
	m.matchLines = m.matchLines[:0]
	if len(m.records) == 0 {
		msg := "No logs match the current filter"
		if m.source.Total() == 0 {
			msg = "No logs yet"
		}
		m.viewport.SetContent(ui.TableDimmedStyle.Render(msg))
		return
	}

	term := m.filterCfg.SearchTerm
	var sb strings.Builder
	for i, r := range m.records {
		line, hit := m.renderRecord(r, term)
		if hit {
			m.matchLines = append(m.matchLines, i)
		}
		sb.WriteString(line)
		if i < len(m.records)-1 {
			sb.WriteString("\n")
		}
	}
	m.viewport.SetContent(sb.String())
	if m.matchCursor >= len(m.matchLines) {
		m.matchCursor = 0
	}
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// renderRecord renders one record on a single viewport line.
func (m *LogsViewerModal) renderRecord(r logs.Record, term string) (string, bool) {
	var prefix string
	if r.Label != "" && m.activeTab == 0 {
		prefix = "[" + r.Label + "] "
	}
	available := m.viewport.Width - lipgloss.Width(prefix)
	content := ui.TruncateWithEllipsis(r.Content, available)

	matches := logs.MatchPositions(content, term)
	styled := m.contentStyle(content).Render(content)
	if len(matches) > 0 {
		styled = highlightMatches(content, matches)
	}
	if prefix != "" {
		styled = ui.LabelStyle.Render(prefix) + styled
	}
	return styled, len(matches) > 0
}

// contentStyle colors lines that look like GitHub Actions annotations.
func (m *LogsViewerModal) contentStyle(content string) lipgloss.Style {
	switch {
	case strings.Contains(content, "##[error]"):
		return ui.ErrorStyle
	case strings.Contains(content, "##[warning]"):
		return ui.WarningStyle
	case strings.Contains(content, "##[group]"), strings.Contains(content, "##[endgroup]"):
		return ui.TableDimmedStyle
	default:
		return lipgloss.NewStyle()
	}
}

// highlightMatches applies highlighting to matched portions of text.
func highlightMatches(content string, matches []logs.MatchPosition) string {
	var result strings.Builder
	lastEnd := 0
	for _, match := range matches {
		if match.Start > lastEnd {
			result.WriteString(content[lastEnd:match.Start])
		}
		result.WriteString(ui.HighlightStyle.Render(content[match.Start:match.End]))
		lastEnd = match.End
	}
	if lastEnd < len(content) {
		result.WriteString(content[lastEnd:])
	}
	return result.String()
}

// View renders the logs viewer modal.
func (m *LogsViewerModal) View() string {
	var s strings.Builder

	runID := m.source.RunID()
	if runID == "" {
		runID = "(none)"
	}
	s.WriteString(ui.TitleStyle.Render("Logs: run " + runID))
	if m.status != "" {
		style := ui.SubtitleStyle
		if m.statusErr {
			style = ui.ErrorStyle
		}
		s.WriteString("  " + style.Render(m.status))
	}
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	s.WriteString(m.renderFilterStatus())
	s.WriteString("\n")

	if m.searchMode {
		s.WriteString(ui.SubtitleStyle.Render("Search: "))
		s.WriteString(m.searchInput.View())
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(m.viewport.View())
	s.WriteString("\n\n")

	s.WriteString(m.renderHelp())

	return s.String()
}

// renderTabs renders the label tabs that fit around the active one.
func (m *LogsViewerModal) renderTabs() string {
	if len(m.labels) == 0 {
		return ui.TableDimmedStyle.Render("No labels")
	}

	start := max(m.activeTab-2, 0)
	var tabs []string
	used := 0
	for i := start; i <= len(m.labels); i++ {
		name := "All"
		if i > 0 {
			name = ui.TruncateWithEllipsis(m.labels[i-1], 30)
		}
		style := ui.TabInactiveStyle
		if i == m.activeTab {
			style = ui.TabActiveStyle
		}
		tab := style.Render(name)
		w := lipgloss.Width(tab)
		if used+w > m.width-4 && len(tabs) > 0 {
			break
		}
		used += w
		tabs = append(tabs, tab)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderFilterStatus shows current filter settings.
func (m *LogsViewerModal) renderFilterStatus() string {
	var parts []string

	label := "all"
	if m.filterCfg.Label != logs.AllLabels {
		label = m.filterCfg.Label
	}
	parts = append(parts, ui.SubtitleStyle.Render("Label: "+label))

	if m.filterCfg.SearchTerm != "" {
		parts = append(parts, ui.TableDimmedStyle.Render(fmt.Sprintf("Search: %q (%d matching lines)", m.filterCfg.SearchTerm, len(m.matchLines))))
	}

	parts = append(parts, ui.TableDimmedStyle.Render(fmt.Sprintf("%d/%d lines", len(m.records), m.source.Total())))

	if m.follow {
		parts = append(parts, ui.TableDimmedStyle.Render("following"))
	}

	return strings.Join(parts, "  ")
}

// renderHelp renders help text.
func (m *LogsViewerModal) renderHelp() string {
	if m.searchMode {
		return ui.HelpStyle.Render("[enter] apply  [esc] cancel")
	}

	return ui.HelpStyle.Render(
		"[←→/tab] label  [/] search  [x] clear  [n/N] match  [F] follow  [e] export  [y] copy  [q] close",
	)
}

// IsDone returns true if the modal is finished.
func (m *LogsViewerModal) IsDone() bool {
	return m.done
}

// Result returns nil.
func (m *LogsViewerModal) Result() any {
	return nil
}
