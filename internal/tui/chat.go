// Package tui implements the interactive terminal chat client.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Asker answers one chat turn. Satisfied by *chat.Session.
type Asker interface {
	Ask(ctx context.Context, message string) (string, error)
}

type answerMsg struct {
	question string
	answer   string
	err      error
}

// ChatModel is the bubbletea model for one chat conversation.
type ChatModel struct {
	session   Asker
	contextID string
	styles    *Styles

	viewport  viewport.Model
	textInput textinput.Model
	history   []string
	waiting   bool
	ready     bool
	quitting  bool
	width     int
	height    int
}

// NewChatModel creates the chat model for the given session.
func NewChatModel(session Asker, contextID string) ChatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about the code (esc to quit)"
	ti.Focus()
	ti.CharLimit = 2000

	return ChatModel{
		session:   session,
		contextID: contextID,
		styles:    DefaultStyles(),
		textInput: ti,
	}
}

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inputHeight := 3
		headerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight-headerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight - headerHeight
		}
		m.textInput.Width = msg.Width - 4
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			question := strings.TrimSpace(m.textInput.Value())
			if question == "" || m.waiting {
				return m, nil
			}
			if question == "exit" || question == "quit" {
				m.quitting = true
				return m, tea.Quit
			}
			m.textInput.Reset()
			m.waiting = true
			m.history = append(m.history, m.styles.You.Render("You: ")+question)
			m.refreshViewport()
			return m, m.ask(question)
		}

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.history = append(m.history, m.styles.Error.Render("Error: "+msg.err.Error()))
		} else {
			m.history = append(m.history,
				m.styles.Cortex.Render("Cortex: ")+m.styles.Answer.Render(msg.answer), "")
		}
		m.refreshViewport()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}

	title := m.styles.Title.Render(fmt.Sprintf("cortex chat · %s", m.contextID))
	status := ""
	if m.waiting {
		status = m.styles.Thinking.Render("thinking...")
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		title,
		m.viewport.View(),
		status,
		m.styles.Input.Render(m.textInput.View()),
	)
}

func (m *ChatModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.history, "\n"))
	m.viewport.GotoBottom()
}

func (m ChatModel) ask(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.session.Ask(context.Background(), question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}
