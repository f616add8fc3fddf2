package middleware

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type ctxKey string

const sessionKey ctxKey = "session_id"

// SessionResolver maps a chat to its active session.
type SessionResolver interface {
	Current(chatID int64) (string, bool)
}

// GetSessionID returns the chat's active session, or "" when none is bound.
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

// WithSessionID stores the active session id in ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// LoadSession returns middleware that puts the chat's active session into ctx.
func LoadSession(resolver SessionResolver) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if id, ok := resolver.Current(ChatID(update)); ok {
				ctx = WithSessionID(ctx, id)
			}
			next(ctx, b, update)
		}
	}
}
