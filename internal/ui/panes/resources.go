// Package panes holds the list panes of the main TUI screen.
package panes

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/kyleking/gh-runtail/internal/resource"
	"github.com/kyleking/gh-runtail/internal/ui"
)

// ResourceItem is one row of a ResourceModel.
type ResourceItem struct {
	resource resource.Resource
	matched  []int
}

// FilterValue is the text the fuzzy filter runs against.
func (i ResourceItem) FilterValue() string {
	parts := []string{i.resource.DisplayName(), i.resource.BareID()}
	if i.resource.Ref != "" && i.resource.Ref != i.resource.Name {
		parts = append(parts, i.resource.Ref)
	}
	return strings.Join(parts, " ")
}

// ResourceModel lists the resources of one type with fuzzy filtering.
type ResourceModel struct {
	title         string
	kind          resource.Type
	all           []ResourceItem
	visible       []ResourceItem
	filter        string
	selectedIndex int
	offset        int
	focused       bool
	width         int
	height        int
}

// NewResourceModel creates a pane showing resources of kind.
func NewResourceModel(title string, kind resource.Type) ResourceModel {
	return ResourceModel{title: title, kind: kind}
}

// SetResources replaces the listing, keeping the selection when the
// selected resource is still present.
func (m *ResourceModel) SetResources(resources []resource.Resource) {
	var selectedID string
	if sel := m.Selected(); sel != nil {
		selectedID = sel.ID
	}

	m.all = m.all[:0]
	for _, r := range resources {
		if resource.Classify(r.Type) == m.kind {
			m.all = append(m.all, ResourceItem{resource: r})
		}
	}
	m.applyFilter()

	for i, item := range m.visible {
		if item.resource.ID == selectedID {
			m.selectedIndex = i
		}
	}
	m.clampSelection()
}

// SetFilter narrows the pane to fuzzy matches of term, best first. An empty
// term restores listing order.
func (m *ResourceModel) SetFilter(term string) {
	m.filter = term
	m.applyFilter()
	m.selectedIndex = 0
	m.offset = 0
}

// Filter returns the active filter term.
func (m ResourceModel) Filter() string {
	return m.filter
}

func (m *ResourceModel) applyFilter() {
	if m.filter == "" {
		m.visible = append(m.visible[:0], m.all...)
		return
	}
	values := make([]string, len(m.all))
	for i, item := range m.all {
		values[i] = item.FilterValue()
	}
	matches := fuzzy.Find(m.filter, values)
	m.visible = m.visible[:0]
	for _, match := range matches {
		item := m.all[match.Index]
		item.matched = match.MatchedIndexes
		m.visible = append(m.visible, item)
	}
}

// SetSize updates the pane dimensions.
func (m *ResourceModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clampSelection()
}

// SetFocused updates the focus state.
func (m *ResourceModel) SetFocused(focused bool) {
	m.focused = focused
}

// MoveUp moves selection up.
func (m *ResourceModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
	m.clampSelection()
}

// MoveDown moves selection down.
func (m *ResourceModel) MoveDown() {
	if m.selectedIndex < len(m.visible)-1 {
		m.selectedIndex++
	}
	m.clampSelection()
}

// Len returns the number of visible rows.
func (m ResourceModel) Len() int {
	return len(m.visible)
}

func (m *ResourceModel) rows() int {
	return max(m.height-3, 1)
}

func (m *ResourceModel) clampSelection() {
	if m.selectedIndex >= len(m.visible) {
		m.selectedIndex = max(len(m.visible)-1, 0)
	}
	rows := m.rows()
	if m.selectedIndex < m.offset {
		m.offset = m.selectedIndex
	}
	if m.selectedIndex >= m.offset+rows {
		m.offset = m.selectedIndex - rows + 1
	}
}

// Selected returns the selected resource, or nil when the pane is empty.
func (m ResourceModel) Selected() *resource.Resource {
	if m.selectedIndex >= len(m.visible) {
		return nil
	}
	r := m.visible[m.selectedIndex].resource
	return &r
}

// View renders the pane.
func (m ResourceModel) View() string {
	style := ui.PaneStyle(m.width, m.height, m.focused)
	title := m.title
	if m.filter != "" {
		title += " /" + m.filter
	}
	return style.Render(ui.TitleStyle.Render(title) + "\n" + m.ViewContent())
}

// ViewContent renders just the list content without the pane border.
func (m ResourceModel) ViewContent() string {
	if len(m.visible) == 0 {
		if m.filter != "" {
			return ui.SubtitleStyle.Render("No matches")
		}
		return ui.SubtitleStyle.Render("Nothing listed")
	}

	maxLineWidth := max(m.width-6, 8)
	end := min(m.offset+m.rows(), len(m.visible))
	var content strings.Builder
	for i := m.offset; i < end; i++ {
		item := m.visible[i]
		line := ui.TruncateWithEllipsis(item.FilterValue(), maxLineWidth)

		indicator := "  "
		rowStyle := ui.TableRowStyle
		if i == m.selectedIndex {
			indicator = "> "
			rowStyle = ui.TableSelectedStyle
		}
		content.WriteString(indicator + renderMatched(line, item.matched, rowStyle))
		if i < end-1 {
			content.WriteString("\n")
		}
	}
	return content.String()
}

// renderMatched styles line with the fuzzy-matched byte offsets emphasized.
func renderMatched(line string, matched []int, style lipgloss.Style) string {
	if len(matched) == 0 {
		return style.Render(line)
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}
	var b strings.Builder
	for i, r := range line {
		if hit[i] {
			b.WriteString(ui.SelectedStyle.Underline(true).Render(string(r)))
		} else {
			b.WriteString(style.Render(string(r)))
		}
	}
	return b.String()
}
