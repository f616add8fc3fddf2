package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
	tg "github.com/set-night/omegachat/internal/telegram"
)

const logsShown = 10

// handleLearn records a correction of the session's last answer.
func (h *Handler) handleLearn(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	correction := commandArg(update.Message.Text)
	if correction == "" {
		sendText(ctx, b, chatID, "Usage: /learn <what the answer should have been>")
		return
	}
	sess, ok := h.currentSession(ctx, b, chatID)
	if !ok {
		return
	}

	l, err := h.learnings.CorrectLastReply(ctx, sess.ID, correction)
	if err != nil {
		h.sendError(ctx, b, chatID, "record learning", err)
		return
	}
	sendText(ctx, b, chatID, "📚 Noted. Future answers will consider:\n"+tg.EscapeMarkdown(l.Summary))
}

func (h *Handler) handleLogs(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	logs, err := h.learnings.Logs(ctx, logsShown)
	if err != nil {
		h.sendError(ctx, b, chatID, "learning logs", err)
		return
	}
	if len(logs) == 0 {
		sendText(ctx, b, chatID, "📚 No corrections recorded yet. Use /learn after an answer.")
		return
	}
	tg.SendLongMessage(ctx, b, chatID, formatLogs(logs), nil)
}

func formatLogs(logs []domain.LearningLog) string {
	var sb strings.Builder
	sb.WriteString("📚 *Recent corrections*\n")
	for _, l := range logs {
		fmt.Fprintf(&sb, "\n• %s\n  applied %d×, %d ok, score %.1f",
			tg.EscapeMarkdown(domain.Excerpt(l.Correction, config.LearningExcerptLen)),
			l.Applications, l.Successes, l.Score)
	}
	return sb.String()
}
