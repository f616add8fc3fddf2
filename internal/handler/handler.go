package handler

import (
	"github.com/go-telegram/bot"
	"github.com/set-night/omegachat/internal/service"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot       *bot.Bot
	sessions  *service.SessionService
	chat      *service.ChatService
	learnings *service.LearningService
	bindings  *Bindings
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot       *bot.Bot
	Sessions  *service.SessionService
	Chat      *service.ChatService
	Learnings *service.LearningService
	Bindings  *Bindings
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	bindings := deps.Bindings
	if bindings == nil {
		bindings = NewBindings()
	}
	return &Handler{
		bot:       deps.Bot,
		sessions:  deps.Sessions,
		chat:      deps.Chat,
		learnings: deps.Learnings,
		bindings:  bindings,
	}
}
