package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const welcomeText = "👋 *Hi!* I relay your messages to local language models.\n\n" +
	"📋 *Commands:*\n" +
	"/new — Start a new session\n" +
	"/sessions — Switch or delete sessions\n" +
	"/settings — Show the session settings\n" +
	"/rename — Rename the session\n" +
	"/models — Choose a model\n" +
	"/temp — Set the temperature\n" +
	"/think — auto, enabled or disabled thinking\n" +
	"/prompt — Set the system prompt\n" +
	"/clear — Clear the conversation\n" +
	"/learn — Correct the last answer\n" +
	"/logs — Show recorded corrections\n\n" +
	"Just send a message to start a conversation!"

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      welcomeText,
		ParseMode: models.ParseModeMarkdownV1,
	})
}
