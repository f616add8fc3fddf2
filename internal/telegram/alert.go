package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
)

// Notifier forwards generation failures to an operator chat.
type Notifier struct {
	sender Sender
	chatID int64
	topic  int
}

func NewNotifier(sender Sender, chatID int64, topic int) *Notifier {
	return &Notifier{sender: sender, chatID: chatID, topic: topic}
}

// Run posts an alert for every failed generation received on events until
// ctx is done or the channel closes.
func (n *Notifier) Run(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == domain.EventGenerationFailed {
				n.Alert(ctx, ev)
			}
		}
	}
}

func (n *Notifier) Alert(ctx context.Context, ev domain.Event) {
	if n.chatID == 0 {
		return
	}
	text := FormatAlert(ev)
	if r := []rune(text); len(r) > config.MaxTelegramMessageLen {
		text = string(r[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(ctx, config.AlertTimeout)
	defer cancel()

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          n.chatID,
		Text:            text,
		ParseMode:       models.ParseModeMarkdownV1,
		MessageThreadID: n.topic,
	})
	if err != nil {
		slog.Error("send telegram alert", "error", err, "session_id", ev.SessionID)
	}
}

func FormatAlert(ev domain.Event) string {
	return fmt.Sprintf("❌ *Generation failed*\n\n*Session:* `%s`\n*Model:* `%s`\n*Error:* %s\n*Time:* %s",
		ev.SessionID, ev.Model, EscapeMarkdown(ev.Error), ev.Time.Format(time.DateTime))
}
