package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	tg "github.com/set-night/omegachat/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
// Plain text is routed through HandleText by the bot's default handler.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/new", bot.MatchTypePrefix, h.handleNew)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/sessions", bot.MatchTypePrefix, h.handleSessions)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/settings", bot.MatchTypePrefix, h.handleSettings)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/rename", bot.MatchTypePrefix, h.handleRename)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/models", bot.MatchTypePrefix, h.handleModels)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/temp", bot.MatchTypePrefix, h.handleTemperature)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/think", bot.MatchTypePrefix, h.handleThink)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/prompt", bot.MatchTypePrefix, h.handlePrompt)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/clear", bot.MatchTypePrefix, h.handleClear)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/learn", bot.MatchTypePrefix, h.handleLearn)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/logs", bot.MatchTypePrefix, h.handleLogs)

	// Sessions callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackNewSession, bot.MatchTypeExact, h.handleNewSession)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackSwitchSession, bot.MatchTypePrefix, h.handleSwitchSession)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackDeleteSession, bot.MatchTypePrefix, h.handleDeleteSession)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackSessionsPage, bot.MatchTypePrefix, h.handleSessionsPage)

	// Settings callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackSelectModel, bot.MatchTypePrefix, h.handleModelSelect)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackTemperature, bot.MatchTypePrefix, h.handleTempValue)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, tg.CallbackNoop, bot.MatchTypeExact, h.handleNoop)
}

// handleNoop acknowledges pagination indicators and other inert buttons.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}
