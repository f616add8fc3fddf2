package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/middleware"
	tg "github.com/set-night/omegachat/internal/telegram"
)

func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sess, err := h.createSession(ctx, chatID, commandArg(update.Message.Text))
	if err != nil {
		h.sendError(ctx, b, chatID, "create session", err)
		return
	}
	sendText(ctx, b, chatID, fmt.Sprintf("🆕 Started *%s* with `%s`.", tg.EscapeMarkdown(sess.Name), sess.Model))
}

// createSession starts a session for the chat and makes it active. An empty
// name is replaced after the first exchange.
func (h *Handler) createSession(ctx context.Context, chatID int64, name string) (*domain.Session, error) {
	in := domain.NewSession{Name: name}
	if name == "" {
		in.Name = domain.PlaceholderName
		in.AutoNamed = true
	}
	sess, err := h.sessions.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	h.bindings.Bind(chatID, sess.ID)
	return sess, nil
}

func (h *Handler) handleSessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	h.sendSessionsPage(ctx, b, chatID, middleware.GetSessionID(ctx), 0, 0)
}

// sendSessionsPage renders the session list. A non-zero messageID edits that
// message in place.
func (h *Handler) sendSessionsPage(ctx context.Context, b *bot.Bot, chatID int64, currentID string, page, messageID int) {
	sessions, err := h.sessions.List(ctx)
	if err != nil {
		h.sendError(ctx, b, chatID, "list sessions", err)
		return
	}

	text := fmt.Sprintf("📂 *Sessions* (%d)", len(sessions))
	if len(sessions) == 0 {
		text = "📂 No sessions yet. Send a message or tap ➕ to start one."
	}
	keyboard := tg.SessionsKeyboard(sessions, currentID, page, config.SessionsPerPage)

	if messageID != 0 {
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        text,
			ParseMode:   models.ParseModeMarkdownV1,
			ReplyMarkup: keyboard,
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: keyboard,
	})
}

func (h *Handler) handleNewSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackTarget(ctx, b, update)
	if !ok {
		return
	}
	sess, err := h.createSession(ctx, chatID, "")
	if err != nil {
		h.sendError(ctx, b, chatID, "create session", err)
		return
	}
	h.sendSessionsPage(ctx, b, chatID, sess.ID, 0, messageID)
}

func (h *Handler) handleSwitchSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackTarget(ctx, b, update)
	if !ok {
		return
	}
	id := strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackSwitchSession)

	sess, err := h.sessions.Get(ctx, id)
	if err != nil {
		h.sendError(ctx, b, chatID, "switch session", err)
		return
	}
	h.bindings.Bind(chatID, sess.ID)
	h.sendSessionsPage(ctx, b, chatID, sess.ID, 0, messageID)
}

func (h *Handler) handleDeleteSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackTarget(ctx, b, update)
	if !ok {
		return
	}
	id := strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackDeleteSession)

	if err := h.sessions.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		h.sendError(ctx, b, chatID, "delete session", err)
		return
	}
	h.bindings.Forget(id)

	current, _ := h.bindings.Current(chatID)
	h.sendSessionsPage(ctx, b, chatID, current, 0, messageID)
}

func (h *Handler) handleSessionsPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID, messageID, ok := callbackTarget(ctx, b, update)
	if !ok {
		return
	}
	page, err := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, tg.CallbackSessionsPage))
	if err != nil {
		return
	}
	current, _ := h.bindings.Current(chatID)
	h.sendSessionsPage(ctx, b, chatID, current, page, messageID)
}

// currentSession loads the chat's active session, telling the user when
// there is none.
func (h *Handler) currentSession(ctx context.Context, b *bot.Bot, chatID int64) (*domain.Session, bool) {
	id := middleware.GetSessionID(ctx)
	if id == "" {
		sendText(ctx, b, chatID, "No active session. Send a message or use /new to start one.")
		return nil, false
	}
	sess, err := h.sessions.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		h.bindings.Unbind(chatID)
		sendText(ctx, b, chatID, "Your session no longer exists. Send a message or use /new to start one.")
		return nil, false
	}
	if err != nil {
		h.sendError(ctx, b, chatID, "get session", err)
		return nil, false
	}
	return sess, true
}

// callbackTarget answers the callback query and returns the chat and message
// it was sent from.
func callbackTarget(ctx context.Context, b *bot.Bot, update *models.Update) (int64, int, bool) {
	if update.CallbackQuery == nil {
		return 0, 0, false
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})

	msg := update.CallbackQuery.Message.Message
	if msg == nil {
		return 0, 0, false
	}
	return msg.Chat.ID, msg.ID, true
}

// commandArg returns the text after the command word.
func commandArg(text string) string {
	_, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(arg)
}

func sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	})
	if err != nil {
		slog.Error("send message", "error", err, "chat_id", chatID)
	}
}

// sendError reports err to the chat. Validation errors are shown as is.
func (h *Handler) sendError(ctx context.Context, b *bot.Bot, chatID int64, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		sendText(ctx, b, chatID, "❌ "+tg.EscapeMarkdown(userMessage(err)))
	case errors.Is(err, domain.ErrSessionNotFound):
		h.bindings.Unbind(chatID)
		sendText(ctx, b, chatID, "❌ Session not found.")
	default:
		slog.Error(op, "error", err, "chat_id", chatID)
		sendText(ctx, b, chatID, "❌ Something went wrong. Please try again.")
	}
}

// userMessage strips the sentinel prefix from validation errors.
func userMessage(err error) string {
	return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
}
