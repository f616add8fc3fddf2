package service

import (
	"fmt"
	"strings"

	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
)

const learningsHeader = "Previous learnings to consider:"

// BuildPrompt assembles the backend conversation: one system turn holding the
// session's system prompt and the learnings, the history window, then text.
// Error rows are chat-visible only and never reach the backend.
func BuildPrompt(sess *domain.Session, learnings []domain.Learning, history []domain.Message, text string) []domain.PromptMessage {
	prompt := make([]domain.PromptMessage, 0, len(history)+2)

	if system := systemBlock(sess.SystemPrompt, learnings); system != "" {
		prompt = append(prompt, domain.PromptMessage{Role: domain.PromptRoleSystem, Content: system})
	}
	for _, m := range history {
		if m.Role == domain.RoleError {
			continue
		}
		prompt = append(prompt, domain.PromptMessage{Role: string(m.Role), Content: m.Content})
	}
	return append(prompt, domain.PromptMessage{Role: string(domain.RoleUser), Content: text})
}

func systemBlock(systemPrompt string, learnings []domain.Learning) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(systemPrompt))
	if len(learnings) == 0 {
		return b.String()
	}

	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(learningsHeader)
	for _, l := range learnings {
		fmt.Fprintf(&b, "\n- Instead of %q, use: %s",
			domain.Excerpt(l.Original, config.LearningExcerptLen), strings.TrimSpace(l.Correction))
	}
	return b.String()
}

// generationSettings translates the session configuration for the backend.
func generationSettings(sess *domain.Session, model domain.ModelInfo) domain.GenerationSettings {
	think := false
	switch sess.ThinkingMode {
	case domain.ThinkingEnabled:
		think = true
	case domain.ThinkingAuto:
		think = model.SupportsThinking
	}
	return domain.GenerationSettings{
		Temperature:    domain.ClampTemperature(sess.Temperature),
		MaxTokens:      domain.ClampMaxTokens(sess.MaxTokens),
		Think:          think,
		ThinkingBudget: max(sess.ThinkingBudget, 0),
	}
}
