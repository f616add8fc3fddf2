package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover returns middleware that turns a handler panic into an error log
// tagged with the update's chat and session. It runs outside LoadSession, so
// the session is resolved here when ctx does not carry one yet.
func Recover(resolver SessionResolver) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			chatID := ChatID(update)
			sessionID := GetSessionID(ctx)
			if sessionID == "" && resolver != nil {
				sessionID, _ = resolver.Current(chatID)
			}

			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "panic recovered in handler",
						"panic", r,
						"update_type", updateType(update),
						"chat_id", chatID,
						"session_id", sessionID,
						"stack", string(debug.Stack()),
					)
				}
			}()
			next(ctx, b, update)
		}
	}
}
