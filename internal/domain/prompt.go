package domain

import "time"

// PromptMessage is one turn of the conversation sent to the backend.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const PromptRoleSystem = "system"

// GenerationSettings are the per-request knobs forwarded to the backend.
type GenerationSettings struct {
	Temperature    float64
	MaxTokens      int
	Think          bool
	ThinkingBudget int
}

// Generation is a normalized backend reply.
type Generation struct {
	Text       string
	TokenCount int
	Duration   time.Duration
}

func (g Generation) ThinkingMs() int64 {
	return g.Duration.Milliseconds()
}
