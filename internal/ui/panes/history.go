package panes

import (
	"fmt"
	"strings"
	"time"

	"github.com/kyleking/gh-runtail/internal/frecency"
	"github.com/kyleking/gh-runtail/internal/ui"
)

func formatTimeAgo(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// HistoryModel manages the recent triggers pane.
type HistoryModel struct {
	entries        []frecency.HistoryEntry
	selectedIndex  int
	focused        bool
	width          int
	height         int
	workflowFilter string
	now            func() time.Time
}

// NewHistoryModel creates a new history pane model.
func NewHistoryModel() HistoryModel {
	return HistoryModel{now: time.Now}
}

// SetEntries updates the history entries.
func (m *HistoryModel) SetEntries(entries []frecency.HistoryEntry, workflowFilter string) {
	m.entries = entries
	m.workflowFilter = workflowFilter
	if m.selectedIndex >= len(entries) {
		m.selectedIndex = max(len(entries)-1, 0)
	}
}

// SetSize updates the pane dimensions.
func (m *HistoryModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetFocused updates the focus state.
func (m *HistoryModel) SetFocused(focused bool) {
	m.focused = focused
}

// MoveUp moves selection up.
func (m *HistoryModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down.
func (m *HistoryModel) MoveDown() {
	if m.selectedIndex < len(m.entries)-1 {
		m.selectedIndex++
	}
}

// View renders the history pane.
func (m HistoryModel) View() string {
	style := ui.PaneStyle(m.width, m.height, m.focused)
	title := "Recent Triggers"
	if m.workflowFilter != "" {
		title = "Recent Triggers (" + m.workflowFilter + ")"
	}
	return style.Render(ui.TitleStyle.Render(title) + "\n" + m.ViewContent())
}

// ViewContent renders just the list content without the pane border.
func (m HistoryModel) ViewContent() string {
	if len(m.entries) == 0 {
		var content strings.Builder
		content.WriteString(ui.SubtitleStyle.Render("No recent triggers"))
		content.WriteString("\n\n")
		content.WriteString(ui.NormalStyle.Render("Trigger a workflow to see"))
		content.WriteString("\n")
		content.WriteString(ui.NormalStyle.Render("its refs here."))
		return content.String()
	}

	now := time.Now
	if m.now != nil {
		now = m.now
	}

	var content strings.Builder
	content.WriteString(ui.TableHeaderStyle.Render(
		"  Ref              Runs  Last run      Time"))
	content.WriteString("\n")

	rows := max(m.height-4, 1)
	for i, entry := range m.entries {
		if i >= rows {
			break
		}
		ref := ui.TruncateWithEllipsis(entry.Ref, 15)
		lastRun := entry.LastRunID
		if lastRun == "" {
			lastRun = "-"
		}
		lastRun = ui.TruncateWithEllipsis(lastRun, 12)

		indicator := "  "
		rowStyle := ui.TableRowStyle
		if i == m.selectedIndex {
			indicator = "> "
			rowStyle = ui.TableSelectedStyle
		}

		row := indicator + ui.PadRight(ref, 15) + "  " +
			ui.PadRight(fmt.Sprintf("%d", entry.RunCount), 4) + "  " +
			ui.PadRight(lastRun, 12) + "  " + formatTimeAgo(entry.LastRunAt, now())

		content.WriteString(rowStyle.Render(row))
		if i < len(m.entries)-1 && i < rows-1 {
			content.WriteString("\n")
		}
	}
	return content.String()
}

// SelectedEntry returns the currently selected history entry.
func (m HistoryModel) SelectedEntry() *frecency.HistoryEntry {
	if len(m.entries) == 0 || m.selectedIndex >= len(m.entries) {
		return nil
	}
	return &m.entries[m.selectedIndex]
}
