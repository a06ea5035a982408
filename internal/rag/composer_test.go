package rag

import (
	"context"
	"strings"
	"testing"

	"rag-chat/internal/llmservice"
	"rag-chat/internal/models"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestComposeBranches(t *testing.T) {
	docs := []models.Chunk{{Content: "fragmento uno"}, {Content: "fragmento dos"}}
	history := models.History{
		{Role: models.RoleUser, Text: "turno previo"},
		{Role: models.RoleAssistant, Text: "respuesta previa"},
		{Role: "system", Text: "ignorado"},
	}

	tests := []struct {
		name      string
		docs      []models.Chunk
		search    string
		route     models.Route
		webNotice bool
		contains  []string
	}{
		{"documents", docs, "", models.RouteDocuments, false, []string{"fragmento uno\nfragmento dos", "di que no lo sabes"}},
		{"documents and web", docs, "Title: web", models.RouteDocumentsWeb, true, []string{"fragmento dos", "Title: web"}},
		{"web", nil, "Title: web", models.RouteWeb, true, []string{"Title: web", "cita las fuentes"}},
		{"general", nil, "", models.RouteGeneral, false, []string{"conocimiento general"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &llmservice.MockModel{Respond: func([]llms.MessageContent) (string, error) { return "**ok**", nil }}
			answer, route, err := NewComposer(model, 0).Compose(context.Background(), "¿pregunta?", history, tt.docs, tt.search)
			require.NoError(t, err)
			require.Equal(t, tt.route, route)
			require.Equal(t, tt.webNotice, strings.HasPrefix(answer, models.WebNotice))
			require.True(t, strings.HasSuffix(answer, "**ok**"))

			calls := model.Calls()
			require.Len(t, calls, 1)
			msgs := calls[0]
			system := systemText(msgs)
			require.Contains(t, system, models.MarkdownDirective)
			for _, s := range tt.contains {
				require.Contains(t, system, s)
			}

			require.Len(t, msgs, 4)
			require.Equal(t, llms.ChatMessageTypeSystem, msgs[0].Role)
			require.Equal(t, llms.ChatMessageTypeHuman, msgs[1].Role)
			require.Equal(t, llms.ChatMessageTypeAI, msgs[2].Role)
			require.Equal(t, llms.ChatMessageTypeHuman, msgs[3].Role)
			require.Equal(t, llms.TextContent{Text: "¿pregunta?"}, msgs[3].Parts[0])
		})
	}
}

func TestAnswerTemplatesCoverEveryCombination(t *testing.T) {
	for _, docs := range []bool{true, false} {
		for _, search := range []bool{true, false} {
			tmpl, ok := answerTemplates[templateKey{hasDocs: docs, hasSearch: search}]
			require.True(t, ok)
			require.Contains(t, tmpl.system("d", "s"), models.MarkdownDirective)
			require.Equal(t, search, tmpl.webNotice)
		}
	}
}

func TestReformulate(t *testing.T) {
	ctx := context.Background()
	model := &llmservice.MockModel{Respond: func([]llms.MessageContent) (string, error) {
		return "  ¿Cuánto duermen los gatos?\n", nil
	}}
	r := NewReformulator(model, 0)

	out, err := r.Reformulate(ctx, nil, "¿Y cuánto duermen?")
	require.NoError(t, err)
	require.Equal(t, "¿Y cuánto duermen?", out)
	require.Empty(t, model.Calls())

	history := models.History{{Role: models.RoleUser, Text: "Hablemos de gatos"}}
	out, err = r.Reformulate(ctx, history, "¿Y cuánto duermen?")
	require.NoError(t, err)
	require.Equal(t, "¿Cuánto duermen los gatos?", out)

	calls := model.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, models.ReformulatePrompt, systemText(calls[0]))
	require.Len(t, calls[0], 3)
}

func TestReformulateBlankReplyKeepsQuestion(t *testing.T) {
	model := &llmservice.MockModel{Respond: func([]llms.MessageContent) (string, error) { return " \n", nil }}
	out, err := NewReformulator(model, 0).Reformulate(context.Background(), models.History{{Role: models.RoleAssistant, Text: "x"}}, "pregunta")
	require.NoError(t, err)
	require.Equal(t, "pregunta", out)
}
