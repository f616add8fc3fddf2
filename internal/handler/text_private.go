package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/middleware"
	tg "github.com/set-night/omegachat/internal/telegram"
)

// HandleText sends a plain text message to the chat's active session and
// replies with the model's answer. A chat without a session gets a new one.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" || strings.HasPrefix(msg.Text, "/") {
		return
	}
	chatID := msg.Chat.ID

	stopTyping := tg.StartTyping(ctx, b, chatID)
	exch, err := h.chat.SendMessage(ctx, middleware.GetSessionID(ctx), msg.Text)
	stopTyping()

	if exch != nil && exch.Session != nil {
		h.bindings.Bind(chatID, exch.Session.ID)
	}

	switch {
	case errors.Is(err, domain.ErrActiveRequest):
		sendText(ctx, b, chatID, "⏳ Wait for the answer to your previous message.")
		return
	case exch == nil || exch.Reply == nil:
		h.sendError(ctx, b, chatID, "send message", err)
		return
	}

	text := exch.Reply.Content
	if exch.Reply.Role == domain.RoleError {
		text = "❌ " + text
	}
	if err := tg.SendLongMessage(ctx, b, chatID, text, &msg.ID); err != nil {
		slog.Error("send reply", "error", err, "chat_id", chatID, "session_id", exch.Session.ID)
	}
}
