package llmservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"rag-chat/internal/config"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

// Transcriber turns recorded audio into text. filename carries the format hint.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type WhisperTranscriber struct {
	client openai.Client
	model  openai.AudioModel
}

func NewTranscriber(cfg *config.TranscriptionConfig) *WhisperTranscriber {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimPrefix(cfg.Key, "Bearer "))}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &WhisperTranscriber{
		client: openai.NewClient(opts...),
		model:  openai.AudioModel(cfg.Model),
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("audio is empty")
	}
	if filename == "" {
		filename = "audio.webm"
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	log.Debug().Str("filename", filename).Int("bytes", len(audio)).Str("model", string(w.model)).Msg("Transcribing audio")

	res, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), filename, contentType),
		Model: w.model,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return res.Text, nil
}
