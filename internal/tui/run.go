package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// RunChat starts the interactive chat program and blocks until the user
// quits.
func RunChat(session Asker, contextID string) error {
	p := tea.NewProgram(NewChatModel(session, contextID), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
