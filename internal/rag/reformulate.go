package rag

import (
	"context"
	"strings"

	"rag-chat/internal/llmservice"
	"rag-chat/internal/models"

	"github.com/tmc/langchaingo/llms"
)

// Reformulator rewrites a follow-up question into a standalone one.
type Reformulator struct {
	model       llms.Model
	temperature float64
}

func NewReformulator(model llms.Model, temperature float64) *Reformulator {
	return &Reformulator{model: model, temperature: temperature}
}

// Reformulate returns question unchanged, without calling the model, when
// history is empty. A blank model reply also falls back to question.
func (r *Reformulator) Reformulate(ctx context.Context, history models.History, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}
	out, err := llmservice.GenerateContent(ctx, r.model, conversation(models.ReformulatePrompt, history, question), r.temperature)
	if err != nil {
		return "", err
	}
	if out = strings.TrimSpace(out); out == "" {
		return question, nil
	}
	return out, nil
}
