package llmservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rag-chat/internal/config"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestNewModel(t *testing.T) {
	m, err := NewModel(&config.LLMConfig{Provider: "openai", Key: "sk-test", Model: "gpt-4o-mini"}, "")
	require.NoError(t, err)
	require.NotNil(t, m)

	m, err = NewModel(&config.LLMConfig{Provider: "mock"}, "")
	require.NoError(t, err)
	require.IsType(t, &MockModel{}, m)

	_, err = NewModel(&config.LLMConfig{Provider: "vertex"}, "")
	require.ErrorContains(t, err, "unknown llm provider")
}

func TestGenerateContent(t *testing.T) {
	m := &MockModel{Respond: func(messages []llms.MessageContent) (string, error) {
		return "hola", nil
	}}
	out, err := GenerateContent(context.Background(), m, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "saluda"),
	}, 0)
	require.NoError(t, err)
	require.Equal(t, "hola", out)
	require.Len(t, m.Calls(), 1)
}

type emptyModel struct{ MockModel }

func (*emptyModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func TestGenerateContentEmpty(t *testing.T) {
	_, err := GenerateContent(context.Background(), &emptyModel{}, nil, 0)
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateContentError(t *testing.T) {
	boom := errors.New("rate limited")
	m := &MockModel{Respond: func([]llms.MessageContent) (string, error) { return "", boom }}
	_, err := GenerateContent(context.Background(), m, nil, 0)
	require.ErrorIs(t, err, boom)
}

func TestDescribeImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	var got []llms.MessageContent
	m := &MockModel{Respond: func(messages []llms.MessageContent) (string, error) {
		got = messages
		return "Un gato", nil
	}}

	out, err := DescribeImage(context.Background(), m, "describe", png, "", 0)
	require.NoError(t, err)
	require.Equal(t, "Un gato", out)

	require.Len(t, got, 1)
	require.Equal(t, llms.ChatMessageTypeHuman, got[0].Role)
	require.Len(t, got[0].Parts, 2)
	img, ok := got[0].Parts[1].(llms.ImageURLContent)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(img.URL, "data:image/png;base64,"))

	_, err = DescribeImage(context.Background(), m, "describe", nil, "x.png", 0)
	require.Error(t, err)
}

func TestImageMIMEType(t *testing.T) {
	require.Equal(t, "image/png", ImageMIMEType(nil, "foto.PNG"))
	require.Equal(t, "image/jpeg", ImageMIMEType(nil, "foto.jpg"))
	require.Equal(t, "image/gif", ImageMIMEType([]byte("GIF89a......"), "upload"))
	require.Equal(t, "image/jpeg", ImageMIMEType([]byte("??"), "notes.txt"))
}

func TestMockDefaultReply(t *testing.T) {
	m := NewMockModel()
	out, err := m.Call(context.Background(), `Responde únicamente con "SI" o "NO".`)
	require.NoError(t, err)
	require.Equal(t, "SI", out)
}
