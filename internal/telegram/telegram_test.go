package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu        sync.Mutex
	sent      []*bot.SendMessageParams
	rejectMD  bool
	delivered chan struct{}
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *params
	f.sent = append(f.sent, &copied)
	if f.rejectMD && params.ParseMode != "" {
		return nil, errors.New("can't parse entities")
	}
	if f.delivered != nil {
		f.delivered <- struct{}{}
	}
	return &models.Message{ID: len(f.sent)}, nil
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	parts := SplitMessage("aaaa\nbbbbbbb", 8)
	assert.Equal(t, []string{"aaaa\n", "bbbbbbb"}, parts)

	parts = SplitMessage(strings.Repeat("я", 25), 10)
	require.Len(t, parts, 3)
	assert.Equal(t, strings.Repeat("я", 5), parts[2])
}

func TestFixMarkdown(t *testing.T) {
	assert.Equal(t, "```go\nx := 1\n```", FixMarkdown("```go\nx := 1"))
	assert.Equal(t, "use `fmt`", FixMarkdown("use `fmt"))
	assert.Equal(t, "balanced `x` here", FixMarkdown("balanced `x` here"))
	assert.Equal(t, "```\n`\n```", FixMarkdown("```\n`\n```"))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `my\_chat \*1\*`, EscapeMarkdown("my_chat *1*"))
}

func TestSendLongMessageFallsBackToPlainText(t *testing.T) {
	s := &fakeSender{rejectMD: true}
	reply := 7
	require.NoError(t, SendLongMessage(context.Background(), s, 42, "*bold", &reply))

	require.Len(t, s.sent, 2)
	assert.Equal(t, models.ParseModeMarkdownV1, s.sent[0].ParseMode)
	assert.Equal(t, models.ParseMode(""), s.sent[1].ParseMode)
	assert.Equal(t, 7, s.sent[1].ReplyParameters.MessageID)
}

func TestSessionsKeyboard(t *testing.T) {
	var sessions []domain.SessionSummary
	for i := range 7 {
		sessions = append(sessions, domain.SessionSummary{
			Session:      domain.Session{ID: string(rune('a' + i)), Name: "chat"},
			MessageCount: i,
		})
	}

	kb := SessionsKeyboard(sessions, "b", 0, 5)
	require.Len(t, kb.InlineKeyboard, 7)
	assert.Equal(t, "✅ chat (1)", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, CallbackDeleteSession+"b", kb.InlineKeyboard[1][1].CallbackData)
	assert.Equal(t, "1/2", kb.InlineKeyboard[5][0].Text)
	assert.Equal(t, CallbackSessionsPage+"1", kb.InlineKeyboard[5][1].CallbackData)

	kb = SessionsKeyboard(sessions, "", 9, 5)
	require.Len(t, kb.InlineKeyboard, 4)
	assert.Equal(t, CallbackSwitchSession+"f", kb.InlineKeyboard[0][0].CallbackData)

	kb = SessionsKeyboard(nil, "", 0, 5)
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, CallbackNewSession, kb.InlineKeyboard[0][0].CallbackData)
}

func TestTemperatureKeyboard(t *testing.T) {
	kb := TemperatureKeyboard([]float64{0.1, 0.4, 0.7, 1.0, 1.5}, 0.7)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "✅ 0.7", kb.InlineKeyboard[0][2].Text)
	assert.Equal(t, CallbackTemperature+"1", kb.InlineKeyboard[1][0].CallbackData)
}

func TestModelsKeyboard(t *testing.T) {
	kb := ModelsKeyboard([]domain.ModelInfo{
		{ID: "phi3:mini", Name: "Phi-3 Mini", SupportsThinking: true},
		{ID: "qwen2:1.5b-instruct", Name: "Qwen2 1.5B"},
	}, "qwen2:1.5b-instruct")
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "Phi-3 Mini 🧠", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "✅ Qwen2 1.5B", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, CallbackSelectModel+"phi3:mini", kb.InlineKeyboard[0][0].CallbackData)
}

func TestNotifierForwardsFailures(t *testing.T) {
	s := &fakeSender{delivered: make(chan struct{}, 4)}
	n := NewNotifier(s, -100123, 9)

	events := make(chan domain.Event, 2)
	events <- domain.Event{Type: domain.EventGenerationCompleted, SessionID: "s1"}
	events <- domain.Event{
		Type:      domain.EventGenerationFailed,
		SessionID: "s1",
		Model:     "phi3:mini",
		Error:     "backend_down",
		Time:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	close(events)
	n.Run(context.Background(), events)

	require.Len(t, s.sent, 1)
	assert.Equal(t, int64(-100123), s.sent[0].ChatID)
	assert.Equal(t, 9, s.sent[0].MessageThreadID)
	assert.Contains(t, s.sent[0].Text, `backend\_down`)
	assert.Contains(t, s.sent[0].Text, "2026-01-02 03:04:05")
}

func TestNotifierWithoutChatIsSilent(t *testing.T) {
	s := &fakeSender{}
	NewNotifier(s, 0, 0).Alert(context.Background(), domain.Event{Type: domain.EventGenerationFailed})
	assert.Empty(t, s.sent)
}
