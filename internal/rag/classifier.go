package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"rag-chat/internal/llmservice"
	"rag-chat/internal/models"

	"github.com/tmc/langchaingo/llms"
)

// SufficiencyClassifier decides whether retrieved context can answer the
// question without a web search.
type SufficiencyClassifier interface {
	IsSufficient(ctx context.Context, question, retrieved string, history models.History) (bool, error)
}

// NewClassifier returns the strategy named by kind: "keyword" or "strict".
func NewClassifier(kind string, model llms.Model, minContextChars int, temperature float64) (SufficiencyClassifier, error) {
	j := judge{model: model, minContextChars: minContextChars, temperature: temperature}
	switch kind {
	case "", "keyword":
		return &KeywordClassifier{judge: j}, nil
	case "strict":
		return &StrictClassifier{judge: j}, nil
	default:
		return nil, fmt.Errorf("unknown classifier: %s", kind)
	}
}

type judge struct {
	model           llms.Model
	minContextChars int
	temperature     float64
}

// belowFloor reports context too short to ever count as sufficient.
func (j judge) belowFloor(retrieved string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(retrieved)) < j.minContextChars
}

func (j judge) ask(ctx context.Context, question, retrieved string, history models.History) (string, error) {
	prompt := fmt.Sprintf(models.SufficiencyPrompt, retrieved, question)
	return llmservice.GenerateContent(ctx, j.model, conversation(prompt, history, question), j.temperature)
}

// KeywordClassifier treats any reply containing "no", in any case, as
// insufficient. Everything else counts as sufficient, including replies
// such as "no obstante, basta".
type KeywordClassifier struct {
	judge
}

func (k *KeywordClassifier) IsSufficient(ctx context.Context, question, retrieved string, history models.History) (bool, error) {
	if k.belowFloor(retrieved) {
		return false, nil
	}
	reply, err := k.ask(ctx, question, retrieved, history)
	if err != nil {
		return false, err
	}
	return !strings.Contains(strings.ToLower(reply), "no"), nil
}

// StrictClassifier only accepts a reply whose first word is SI, SÍ or YES.
type StrictClassifier struct {
	judge
}

func (s *StrictClassifier) IsSufficient(ctx context.Context, question, retrieved string, history models.History) (bool, error) {
	if s.belowFloor(retrieved) {
		return false, nil
	}
	reply, err := s.ask(ctx, question, retrieved, history)
	if err != nil {
		return false, err
	}
	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if len(fields) == 0 {
		return false, nil
	}
	switch strings.ToUpper(fields[0]) {
	case "SI", "SÍ", "YES":
		return true, nil
	}
	return false, nil
}
