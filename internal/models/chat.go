package models

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message of a conversation.
type Turn struct {
	Role Role
	Text string
}

// History is chronological; the caller owns it and passes it on every call.
type History []Turn

// ParseRole accepts "user" and "assistant" (case-insensitive). Any other
// role is reported as not ok and callers drop the turn.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAssistant:
		return RoleAssistant, true
	}
	return "", false
}

// Last returns at most the n most recent turns.
func (h History) Last(n int) History {
	if n <= 0 || len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// Route names the branch that produced an answer.
type Route string

const (
	RouteDocuments    Route = "documents"
	RouteDocumentsWeb Route = "documents+web"
	RouteWeb          Route = "web"
	RouteGeneral      Route = "general"
)

// Chunk is one span of source text held by the index.
type Chunk struct {
	Content  string
	Document int
	Position int
}

type PromptResponse struct {
	Query   string
	Route   Route
	Content string
}

// IndexStats describes the live index, if any.
type IndexStats struct {
	Ready  bool
	Chunks int
}
