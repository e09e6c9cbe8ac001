package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette the styles are built from.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Muted     lipgloss.Color
	SoftMuted lipgloss.Color
	Text      lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Highlight lipgloss.Color
}

// DefaultTheme is a 256-color palette that reads on dark and light terminals.
var DefaultTheme = Theme{
	Primary:   lipgloss.Color("69"),
	Secondary: lipgloss.Color("240"),
	Accent:    lipgloss.Color("212"),
	Muted:     lipgloss.Color("241"),
	SoftMuted: lipgloss.Color("245"),
	Text:      lipgloss.Color("252"),
	Error:     lipgloss.Color("203"),
	Warning:   lipgloss.Color("214"),
	Highlight: lipgloss.Color("220"),
}

var currentTheme = DefaultTheme

// Colors used throughout the UI.
var (
	PrimaryColor   lipgloss.Color
	SecondaryColor lipgloss.Color
	AccentColor    lipgloss.Color
	MutedColor     lipgloss.Color
	SoftMutedColor lipgloss.Color
	TextColor      lipgloss.Color
)

// Styles for the application (initialized in ApplyTheme).
var (
	BorderStyle        lipgloss.Style
	ErrorStyle         lipgloss.Style
	FocusedBorderStyle lipgloss.Style
	HelpStyle          lipgloss.Style
	HighlightStyle     lipgloss.Style
	LabelStyle         lipgloss.Style
	NormalStyle        lipgloss.Style
	SelectedStyle      lipgloss.Style
	StatusStyle        lipgloss.Style
	SubtitleStyle      lipgloss.Style
	TabActiveStyle     lipgloss.Style
	TabInactiveStyle   lipgloss.Style
	TableDimmedStyle   lipgloss.Style
	TableHeaderStyle   lipgloss.Style
	TableRowStyle      lipgloss.Style
	TableSelectedStyle lipgloss.Style
	TitleStyle         lipgloss.Style
	WarningStyle       lipgloss.Style
)

func init() {
	ApplyTheme()
}

// InitTheme sets the theme and applies colors.
func InitTheme(t Theme) {
	currentTheme = t
	ApplyTheme()
}

// ApplyTheme updates all colors and styles from current theme.
func ApplyTheme() {
	PrimaryColor = currentTheme.Primary
	SecondaryColor = currentTheme.Secondary
	AccentColor = currentTheme.Accent
	MutedColor = currentTheme.Muted
	SoftMutedColor = currentTheme.SoftMuted
	TextColor = currentTheme.Text

	BorderStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(SecondaryColor)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(currentTheme.Error)

	FocusedBorderStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor)

	HelpStyle = lipgloss.NewStyle().
		Foreground(SoftMutedColor)

	HighlightStyle = lipgloss.NewStyle().
		Background(currentTheme.Highlight).
		Foreground(lipgloss.Color("0")).
		Bold(true)

	LabelStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor)

	NormalStyle = lipgloss.NewStyle().
		Foreground(TextColor)

	SelectedStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(AccentColor)

	StatusStyle = lipgloss.NewStyle().
		Foreground(SoftMutedColor).
		Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(SoftMutedColor)

	TabActiveStyle = lipgloss.NewStyle().
		Background(PrimaryColor).
		Foreground(lipgloss.Color("230")).
		Padding(0, 2).
		Bold(true)

	TabInactiveStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 2)

	TableDimmedStyle = lipgloss.NewStyle().
		Foreground(MutedColor)

	TableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	TableRowStyle = lipgloss.NewStyle().
		Foreground(TextColor)

	TableSelectedStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(AccentColor)

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	WarningStyle = lipgloss.NewStyle().
		Foreground(currentTheme.Warning)
}

// PaneStyle returns a style for a pane with optional focus.
func PaneStyle(width, height int, focused bool) lipgloss.Style {
	style := BorderStyle
	if focused {
		style = FocusedBorderStyle
	}
	return style.Width(max(width-2, 0)).Height(max(height-2, 0))
}
