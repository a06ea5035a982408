package llmservice

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// MockModel is an offline llms.Model. Respond decides each reply; when nil
// the model answers judgment prompts with "SI" and everything else with a
// fixed Markdown line.
type MockModel struct {
	Respond func(messages []llms.MessageContent) (string, error)

	mu    sync.Mutex
	calls [][]llms.MessageContent
}

var _ llms.Model = (*MockModel)(nil)

func NewMockModel() *MockModel {
	return &MockModel{}
}

func (m *MockModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()

	respond := m.Respond
	if respond == nil {
		respond = defaultMockReply
	}
	text, err := respond(messages)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (m *MockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns the message lists received so far.
func (m *MockModel) Calls() [][]llms.MessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]llms.MessageContent(nil), m.calls...)
}

func defaultMockReply(messages []llms.MessageContent) (string, error) {
	if strings.Contains(MessageText(messages), `"SI" o "NO"`) {
		return "SI", nil
	}
	return "**Respuesta simulada.**", nil
}

// MessageText concatenates every text part, one message per line.
func MessageText(messages []llms.MessageContent) string {
	var b strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			if t, ok := p.(llms.TextContent); ok {
				b.WriteString(t.Text)
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}
