package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rag-chat/internal/models"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HistoryWindow is how many prior turns are sent with each question.
const HistoryWindow = 6

// Chatter is the TUI-facing subset of the session.
type Chatter interface {
	Answer(ctx context.Context, question string, history models.History, forceWebSearch bool) (*models.PromptResponse, error)
	IndexStats() models.IndexStats
}

type answerMsg struct {
	question string
	res      *models.PromptResponse
	err      error
}

type Model struct {
	chat       Chatter
	timeout    time.Duration
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	history    models.History
	transcript []string
	forceWeb   bool
	busy       bool
	ready      bool
	status     string
}

func New(chat Chatter, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Escribe tu pregunta y pulsa Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		chat:     chat,
		timeout:  timeout,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Enter envía · ctrl+w búsqueda web · ctrl+c sale",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyCtrlW:
			m.forceWeb = !m.forceWeb
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			m.busy = true
			m.status = "Pensando..."
			m.transcript = append(m.transcript, userStyle.Render("Tú: ")+q)
			m.refresh()
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		}

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.transcript = append(m.transcript, errorStyle.Render("Error: "+msg.err.Error()))
			m.refresh()
			return m, nil
		}
		m.history = append(m.history,
			models.Turn{Role: models.RoleUser, Text: msg.question},
			models.Turn{Role: models.RoleAssistant, Text: msg.res.Content},
		)
		m.status = fmt.Sprintf("Ruta: %s", msg.res.Route)
		m.transcript = append(m.transcript, botStyle.Render("Asistente: ")+msg.res.Content)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the question off the UI loop with the last HistoryWindow turns.
func (m Model) ask(question string) tea.Cmd {
	history := append(models.History(nil), m.history.Last(HistoryWindow)...)
	force := m.forceWeb
	chat, timeout := m.chat, m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		res, err := chat.Answer(ctx, question, history, force)
		return answerMsg{question: question, res: res, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.transcript, "\n\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")

	stats := m.chat.IndexStats()
	index := "sin documentos"
	if stats.Ready {
		index = fmt.Sprintf("%d fragmentos indexados", stats.Chunks)
	}
	web := "web: auto"
	if m.forceWeb {
		web = webOnStyle.Render("web: forzada")
	}
	info := dimStyle.Render(index+" · ") + web

	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + info + "\n" + transcriptStyle.Render(m.viewport.View()) + "\n" + inputStyle.Render(m.input.View()) + "\n" + status
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	webOnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
