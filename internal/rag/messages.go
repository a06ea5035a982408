package rag

import (
	"rag-chat/internal/models"

	"github.com/tmc/langchaingo/llms"
)

// conversation lays out system prompt, prior turns and the question as chat
// messages. Turns with an unknown role are skipped.
func conversation(system string, history models.History, question string) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	for _, turn := range history {
		switch turn.Role {
		case models.RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, turn.Text))
		case models.RoleAssistant:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, turn.Text))
		}
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))
}
