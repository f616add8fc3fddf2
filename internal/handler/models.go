package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/middleware"
	tg "github.com/set-night/omegachat/internal/telegram"
)

func (h *Handler) handleModels(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	current := ""
	if id := middleware.GetSessionID(ctx); id != "" {
		if sess, err := h.sessions.Get(ctx, id); err == nil {
			current = sess.Model
		}
	}

	available := h.sessions.Models(ctx)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        formatModels(available),
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: tg.ModelsKeyboard(available, current),
	})
}

func formatModels(available []domain.ModelInfo) string {
	var sb strings.Builder
	sb.WriteString("🤖 *Models*\n")
	for _, m := range available {
		status := "not installed"
		if m.Installed {
			status = m.Size
		}
		fmt.Fprintf(&sb, "\n`%s` %s (%s)", m.ID, tg.EscapeMarkdown(m.Description), status)
	}
	return sb.String()
}

// handleModelSelect switches the active session to the chosen model, starting
// a session when the chat has none.
func (h *Handler) handleModelSelect(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, _, ok := callbackTarget(ctx, b, update)
	if !ok {
		return
	}
	model := strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackSelectModel)

	id := middleware.GetSessionID(ctx)
	if id == "" {
		sess, err := h.sessions.Create(ctx, domain.NewSession{Name: domain.PlaceholderName, Model: model, AutoNamed: true})
		if err != nil {
			h.sendError(ctx, b, chatID, "create session", err)
			return
		}
		h.bindings.Bind(chatID, sess.ID)
		sendText(ctx, b, chatID, fmt.Sprintf("🆕 Started a new session with `%s`.", sess.Model))
		return
	}

	sess, err := h.sessions.Configure(ctx, id, domain.SessionPatch{Model: &model})
	if err != nil {
		h.sendError(ctx, b, chatID, "select model", err)
		return
	}
	sendText(ctx, b, chatID, fmt.Sprintf("✅ Model set to `%s`.", sess.Model))
}
