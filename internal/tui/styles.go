package tui

import "github.com/charmbracelet/lipgloss"

// Color constants matching the dark dashboard theme
const (
	ColorBg     = "#0d1117"
	ColorCard   = "#161b22"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the chat TUI
type Styles struct {
	Title    lipgloss.Style
	Help     lipgloss.Style
	You      lipgloss.Style
	Cortex   lipgloss.Style
	Answer   lipgloss.Style
	Error    lipgloss.Style
	Thinking lipgloss.Style
	Input    lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)).
			MarginBottom(1),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		You: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBlue)),

		Cortex: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorGreen)),

		Answer: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorRed)),

		Thinking: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		Input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),
	}
}
