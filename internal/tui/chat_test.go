package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type stubAsker struct {
	answer string
	err    error
	asked  []string
}

func (s *stubAsker) Ask(ctx context.Context, message string) (string, error) {
	s.asked = append(s.asked, message)
	return s.answer, s.err
}

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestChatModelSendsQuestion(t *testing.T) {
	asker := &stubAsker{answer: "it parses config"}
	m := NewChatModel(asker, "proj")

	var model tea.Model = m
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(typed("what does Load do?"))
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter did not produce a command")
	}

	msg := cmd()
	answer, ok := msg.(answerMsg)
	if !ok {
		t.Fatalf("command produced %T", msg)
	}
	if answer.answer != "it parses config" || answer.err != nil {
		t.Errorf("answer = %+v", answer)
	}
	if len(asker.asked) != 1 || asker.asked[0] != "what does Load do?" {
		t.Errorf("asked = %v", asker.asked)
	}

	model, _ = model.Update(answer)
	view := model.View()
	if !strings.Contains(view, "it parses config") {
		t.Error("answer not rendered in view")
	}
}

func TestChatModelIgnoresEmptyInput(t *testing.T) {
	asker := &stubAsker{}
	var model tea.Model = NewChatModel(asker, "proj")
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("empty input produced a command")
	}
}

func TestChatModelRendersError(t *testing.T) {
	asker := &stubAsker{err: errors.New("provider unavailable")}
	var model tea.Model = NewChatModel(asker, "proj")
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(typed("q"))
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	model, _ = model.Update(cmd())
	if !strings.Contains(model.View(), "provider unavailable") {
		t.Error("error not rendered in view")
	}
}

func TestChatModelQuitWords(t *testing.T) {
	var model tea.Model = NewChatModel(&stubAsker{}, "proj")
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(typed("exit"))
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("command produced %T, want QuitMsg", msg)
	}
}
