package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/middleware"
	tg "github.com/set-night/omegachat/internal/telegram"
)

func (h *Handler) handleSettings(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	sess, ok := h.currentSession(ctx, b, chatID)
	if !ok {
		return
	}
	sendText(ctx, b, chatID, formatSettings(sess))
}

func formatSettings(sess *domain.Session) string {
	prompt := "none"
	if sess.SystemPrompt != "" {
		prompt = tg.EscapeMarkdown(domain.Excerpt(sess.SystemPrompt, 200))
	}
	return fmt.Sprintf(
		"⚙️ *%s*\n\n"+
			"🤖 Model: `%s`\n"+
			"🌡 Temperature: *%.1f*\n"+
			"📏 Max tokens: *%d*\n"+
			"🧠 Thinking: *%s* (budget %d)\n"+
			"📝 System prompt: %s",
		tg.EscapeMarkdown(sess.Name),
		sess.Model,
		sess.Temperature,
		sess.MaxTokens,
		sess.ThinkingMode,
		sess.ThinkingBudget,
		prompt,
	)
}

func (h *Handler) handleRename(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	name := commandArg(update.Message.Text)
	if name == "" {
		sendText(ctx, b, chatID, "Usage: /rename <name>")
		return
	}
	sess, ok := h.currentSession(ctx, b, chatID)
	if !ok {
		return
	}
	sess, err := h.sessions.Rename(ctx, sess.ID, name)
	if err != nil {
		h.sendError(ctx, b, chatID, "rename session", err)
		return
	}
	sendText(ctx, b, chatID, fmt.Sprintf("✏️ Renamed to *%s*.", tg.EscapeMarkdown(sess.Name)))
}

func (h *Handler) handleTemperature(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	sess, ok := h.currentSession(ctx, b, chatID)
	if !ok {
		return
	}

	if arg := commandArg(update.Message.Text); arg != "" {
		t, err := strconv.ParseFloat(strings.ReplaceAll(arg, ",", "."), 64)
		if err != nil {
			sendText(ctx, b, chatID, "Usage: /temp <0.0-2.0>")
			return
		}
		h.setTemperature(ctx, b, chatID, sess.ID, t)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        fmt.Sprintf("🌡 Temperature: *%.1f*\nLower is more focused, higher is more creative.", sess.Temperature),
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: tg.TemperatureKeyboard(config.TemperatureOptions, sess.Temperature),
	})
}

func (h *Handler) handleTempValue(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := callbackTarget(ctx, b, update)
	if !ok {
		return
	}
	t, err := strconv.ParseFloat(strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackTemperature), 64)
	if err != nil {
		return
	}
	sess, ok := h.currentSession(ctx, b, chatID)
	if !ok {
		return
	}
	h.setTemperature(ctx, b, chatID, sess.ID, t)
}

func (h *Handler) setTemperature(ctx context.Context, b *bot.Bot, chatID int64, sessionID string, t float64) {
	sess, err := h.sessions.Configure(ctx, sessionID, domain.SessionPatch{Temperature: &t})
	if err != nil {
		h.sendError(ctx, b, chatID, "set temperature", err)
		return
	}
	sendText(ctx, b, chatID, fmt.Sprintf("🌡 Temperature set to *%.1f*.", sess.Temperature))
}

func (h *Handler) handleThink(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	sess, ok := h.currentSession(ctx, b, chatID)
	if !ok {
		return
	}

	arg := strings.ToLower(commandArg(update.Message.Text))
	if arg == "" {
		sendText(ctx, b, chatID, fmt.Sprintf("🧠 Thinking: *%s*\nUsage: /think auto|enabled|disabled", sess.ThinkingMode))
		return
	}
	mode := domain.ThinkingMode(arg)
	sess, err := h.sessions.Configure(ctx, sess.ID, domain.SessionPatch{ThinkingMode: &mode})
	if err != nil {
		h.sendError(ctx, b, chatID, "set thinking mode", err)
		return
	}
	sendText(ctx, b, chatID, fmt.Sprintf("🧠 Thinking set to *%s*.", sess.ThinkingMode))
}

func (h *Handler) handleClear(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	id := middleware.GetSessionID(ctx)
	if id == "" {
		sendText(ctx, b, chatID, "No active session.")
		return
	}
	if h.chat.Busy(id) {
		sendText(ctx, b, chatID, "⏳ Wait for the answer to your previous message.")
		return
	}
	if err := h.sessions.Clear(ctx, id); err != nil {
		h.sendError(ctx, b, chatID, "clear session", err)
		return
	}
	sendText(ctx, b, chatID, "🔄 Conversation cleared. Learnings are kept.")
}
