package rag

import (
	"context"
	"fmt"
	"strings"

	"rag-chat/internal/llmservice"
	"rag-chat/internal/models"

	"github.com/tmc/langchaingo/llms"
)

type templateKey struct {
	hasDocs   bool
	hasSearch bool
}

type answerTemplate struct {
	route     models.Route
	webNotice bool
	system    func(docs, search string) string
}

var answerTemplates = map[templateKey]answerTemplate{
	{hasDocs: true, hasSearch: false}: {
		route:  models.RouteDocuments,
		system: func(docs, _ string) string { return fmt.Sprintf(models.DocumentsPrompt, docs) },
	},
	{hasDocs: true, hasSearch: true}: {
		route:     models.RouteDocumentsWeb,
		webNotice: true,
		system:    func(docs, search string) string { return fmt.Sprintf(models.DocumentsWebPrompt, docs, search) },
	},
	{hasDocs: false, hasSearch: true}: {
		route:     models.RouteWeb,
		webNotice: true,
		system:    func(_, search string) string { return fmt.Sprintf(models.WebPrompt, search) },
	},
	{hasDocs: false, hasSearch: false}: {
		route:  models.RouteGeneral,
		system: func(_, _ string) string { return models.GeneralPrompt },
	},
}

// Composer writes the final Markdown answer.
type Composer struct {
	model       llms.Model
	temperature float64
}

func NewComposer(model llms.Model, temperature float64) *Composer {
	return &Composer{model: model, temperature: temperature}
}

// Compose picks the prompt from which inputs are present and returns the
// answer together with the route taken.
func (c *Composer) Compose(ctx context.Context, question string, history models.History, docs []models.Chunk, search string) (string, models.Route, error) {
	docText := joinChunks(docs)
	search = strings.TrimSpace(search)
	tmpl := answerTemplates[templateKey{hasDocs: len(docs) > 0, hasSearch: search != ""}]

	answer, err := llmservice.GenerateContent(ctx, c.model, conversation(tmpl.system(docText, search), history, question), c.temperature)
	if err != nil {
		return "", tmpl.route, err
	}
	if tmpl.webNotice {
		answer = models.WebNotice + answer
	}
	return answer, tmpl.route, nil
}

func joinChunks(chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, models.ContextSeparator)
}
