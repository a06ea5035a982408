package llmservice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"rag-chat/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var ErrEmptyResponse = errors.New("model returned no content")

// NewModel creates a chat model for cfg. model overrides cfg.Model when set.
func NewModel(cfg *config.LLMConfig, model string) (llms.Model, error) {
	if model == "" {
		model = cfg.Model
	}
	log.Debug().Str("provider", cfg.Provider).Str("base_url", cfg.BaseURL).Str("model", model).Msg("Creating chat model")

	switch cfg.Provider {
	case "", "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai model: %w", err)
		}
		return llm, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama model: %w", err)
		}
		return llm, nil
	case "mock":
		return NewMockModel(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// GenerateContent sends messages to the model and returns the first choice.
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, temperature float64) (string, error) {
	res, err := llm.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return res.Choices[0].Content, nil
}

// DescribeImage runs one multimodal turn: the instruction plus the image
// inlined as a data URL.
func DescribeImage(ctx context.Context, llm llms.Model, instruction string, image []byte, filename string, temperature float64) (string, error) {
	if len(image) == 0 {
		return "", errors.New("image is empty")
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", ImageMIMEType(image, filename), base64.StdEncoding.EncodeToString(image))

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextContent{Text: instruction},
				llms.ImageURLPart(dataURL),
			},
		},
	}
	return GenerateContent(ctx, llm, messages, temperature)
}

// ImageMIMEType prefers the file extension and falls back to sniffing.
func ImageMIMEType(image []byte, filename string) string {
	if ext := filepath.Ext(filename); ext != "" {
		if t := mime.TypeByExtension(strings.ToLower(ext)); strings.HasPrefix(t, "image/") {
			return t
		}
	}
	if t := http.DetectContentType(image); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
