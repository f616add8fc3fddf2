package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/omegachat/internal/domain"
)

// handlePrompt shows the system prompt, replaces it, or clears it with "off".
func (h *Handler) handlePrompt(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	sess, ok := h.currentSession(ctx, b, chatID)
	if !ok {
		return
	}

	arg := commandArg(update.Message.Text)
	switch {
	case arg == "":
		if sess.SystemPrompt == "" {
			sendText(ctx, b, chatID, "📝 No system prompt set.\nUsage: /prompt <text>, or /prompt off to clear it.")
			return
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "📝 System prompt:\n\n" + sess.SystemPrompt,
		})
		return
	case strings.EqualFold(arg, "off"):
		arg = ""
	}

	if _, err := h.sessions.Configure(ctx, sess.ID, domain.SessionPatch{SystemPrompt: &arg}); err != nil {
		h.sendError(ctx, b, chatID, "set system prompt", err)
		return
	}
	if arg == "" {
		sendText(ctx, b, chatID, "📝 System prompt cleared.")
		return
	}
	sendText(ctx, b, chatID, "📝 System prompt updated.")
}
