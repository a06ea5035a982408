package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rag-chat/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

type call struct {
	question string
	history  models.History
	force    bool
}

type fakeChat struct {
	calls []call
	err   error
}

func (f *fakeChat) Answer(_ context.Context, q string, h models.History, force bool) (*models.PromptResponse, error) {
	f.calls = append(f.calls, call{q, h, force})
	if f.err != nil {
		return nil, f.err
	}
	return &models.PromptResponse{Query: q, Route: models.RouteGeneral, Content: "eco: " + q}, nil
}

func (f *fakeChat) IndexStats() models.IndexStats {
	return models.IndexStats{Ready: true, Chunks: 7}
}

// send types q, presses Enter and runs the resulting question command.
func send(t *testing.T, m Model, chat *fakeChat, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.True(t, m.busy)

	msg := m.ask(q)()
	next, _ = m.Update(msg)
	return next.(Model)
}

func TestAskKeepsHistoryWindow(t *testing.T) {
	chat := &fakeChat{}
	m := New(chat, 0)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)

	for i := range 5 {
		m = send(t, m, chat, fmt.Sprintf("pregunta %d", i))
		require.False(t, m.busy)
	}
	require.Len(t, m.history, 10)

	last := chat.calls[len(chat.calls)-1]
	require.Len(t, last.history, HistoryWindow)
	require.Equal(t, "pregunta 1", last.history[0].Text)
	require.Equal(t, "eco: pregunta 3", last.history[HistoryWindow-1].Text)
	require.Contains(t, m.View(), "7 fragmentos indexados")
}

func TestToggleWebSearch(t *testing.T) {
	chat := &fakeChat{}
	m := New(chat, 0)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlW})
	m = next.(Model)
	require.True(t, m.forceWeb)

	m = send(t, m, chat, "noticias")
	require.True(t, chat.calls[len(chat.calls)-1].force)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlW})
	m = next.(Model)
	require.False(t, m.forceWeb)
}

func TestAnswerError(t *testing.T) {
	chat := &fakeChat{err: errors.New("sin conexión")}
	m := send(t, New(chat, 0), chat, "hola")
	require.Empty(t, m.history)
	require.Contains(t, m.status, "sin conexión")
}

func TestEnterIgnoredWhileBusyOrEmpty(t *testing.T) {
	m := New(&fakeChat{}, 0)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.False(t, next.(Model).busy)
}
