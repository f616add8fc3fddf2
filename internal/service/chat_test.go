package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/set-night/omegachat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.sessions.Create(ctx, domain.NewSession{Name: "", Model: testModel})
	require.ErrorIs(t, err, domain.ErrValidation)

	sess := env.createSession(t, "Test")

	exch, err := env.chat.SendMessage(ctx, sess.ID, "Hello")
	require.NoError(t, err)

	msgs, err := env.sessions.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	require.NotNil(t, msgs[1].TokenCount)
	assert.GreaterOrEqual(t, *msgs[1].TokenCount, 0)
	require.NotNil(t, msgs[1].ThinkingMs)
	assert.Equal(t, int64(800), *msgs[1].ThinkingMs)

	assert.Equal(t, msgs[1].ID, exch.Reply.ID)
	assert.True(t, exch.Session.UpdatedAt.After(sess.UpdatedAt))
	assert.Equal(t, "Test", exch.Session.Name)

	assert.Equal(t, []domain.EventType{
		domain.EventSessionUpdated,
		domain.EventMessageReceived,
		domain.EventGenerationStarted,
		domain.EventGenerationCompleted,
	}, env.publisher.types(sess.ID))
}

func TestSendMessageIncludesLearnings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.learnings.Record(ctx, domain.NewLearning{Original: "2+2=5", Correction: "2+2=4"})
	require.NoError(t, err)

	sess := env.createSession(t, "Arithmetic")
	_, err = env.chat.SendMessage(ctx, sess.ID, "What is 2+2?")
	require.NoError(t, err)

	prompt := env.gateway.lastPrompt()
	require.NotEmpty(t, prompt)
	var found bool
	for _, m := range prompt {
		if strings.Contains(m.Content, "2+2=4") {
			found = true
		}
	}
	assert.True(t, found, "correction missing from prompt: %+v", prompt)

	logs, err := env.learnings.Logs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 1, logs[0].Applications)
	assert.Equal(t, 1, logs[0].Successes)
	assert.InDelta(t, domain.ScoreStep, logs[0].Score, 1e-9)
}

func TestSendMessageTimeoutLeavesNoAssistantRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.gateway.err = fmt.Errorf("chat request: %w", domain.ErrBackendTimeout)

	sess := env.createSession(t, "Slow")
	exch, err := env.chat.SendMessage(ctx, sess.ID, "Tell me a long story")
	require.ErrorIs(t, err, domain.ErrBackendTimeout)
	require.NotNil(t, exch)

	msgs, err := env.sessions.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleError, msgs[1].Role)
	assert.Equal(t, FailureText(domain.ErrBackendTimeout, testModel), msgs[1].Content)
	for _, m := range msgs {
		assert.NotEqual(t, domain.RoleAssistant, m.Role)
	}
	assert.Equal(t, exch.Reply.ID, msgs[1].ID)

	types := env.publisher.types(sess.ID)
	assert.Equal(t, domain.EventGenerationFailed, types[len(types)-1])
}

func TestSendMessageFailureKeepsHistoryUsable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.createSession(t, "Flaky")

	env.gateway.err = domain.ErrBackendUnavailable
	_, err := env.chat.SendMessage(ctx, sess.ID, "first try")
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)

	env.gateway.err = nil
	_, err = env.chat.SendMessage(ctx, sess.ID, "second try")
	require.NoError(t, err)

	prompt := env.gateway.lastPrompt()
	require.Len(t, prompt, 2)
	assert.Equal(t, "first try", prompt[0].Content)
	assert.Equal(t, "second try", prompt[1].Content)
}

func TestSendMessageUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.chat.SendMessage(context.Background(), "missing", "Hello")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "Test")
	_, err := env.chat.SendMessage(context.Background(), sess.ID, "   ")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSendMessageCreatesAndNamesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	exch, err := env.chat.SendMessage(ctx, "", "Write a python function to sort a list")
	require.NoError(t, err)
	assert.Equal(t, "Code: Write A Python", exch.Session.Name)
	assert.False(t, exch.Session.AutoNamed)
	assert.Equal(t, testModel, exch.Session.Model)

	_, err = env.chat.SendMessage(ctx, exch.Session.ID, "Now in Go please")
	require.NoError(t, err)
	got, err := env.sessions.Get(ctx, exch.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Code: Write A Python", got.Name)
}

func TestSendMessageNamesSessionAfterFailedFirstTurn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.gateway.err = domain.ErrBackendUnavailable
	exch, err := env.chat.SendMessage(ctx, "", "Write a python function to sort a list")
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	require.NotNil(t, exch)
	assert.Equal(t, "Code: Write A Python", exch.Session.Name)
	assert.False(t, exch.Session.AutoNamed)

	env.gateway.err = nil
	retry, err := env.chat.SendMessage(ctx, exch.Session.ID, "Please try again")
	require.NoError(t, err)
	assert.Equal(t, "Code: Write A Python", retry.Session.Name)

	got, err := env.sessions.Get(ctx, exch.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Code: Write A Python", got.Name)
	assert.False(t, got.AutoNamed)
}

func TestStartChatUsesSessionSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	temp := 1.2
	exch, err := env.chat.StartChat(ctx, domain.NewSession{
		Model:        "qwen2:1.5b-instruct",
		SystemPrompt: "Answer in one line.",
		Temperature:  &temp,
	}, "Plan a weekend trip to the mountains")
	require.NoError(t, err)

	assert.Equal(t, "qwen2:1.5b-instruct", exch.Session.Model)
	assert.Equal(t, "Answer in one line.", exch.Session.SystemPrompt)
	assert.InDelta(t, 1.2, exch.Session.Temperature, 1e-9)
	assert.NotEqual(t, domain.PlaceholderName, exch.Session.Name)
	assert.False(t, exch.Session.AutoNamed)

	prompt := env.gateway.lastPrompt()
	require.NotEmpty(t, prompt)
	assert.Equal(t, domain.PromptRoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "Answer in one line.")

	_, err = env.chat.StartChat(ctx, domain.NewSession{Model: "no-such-model"}, "Hello")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSendMessageRejectsConcurrentTurn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.createSession(t, "Busy")

	block := make(chan struct{})
	env.gateway.block = block

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := env.chat.SendMessage(ctx, sess.ID, "first")
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool { return env.chat.Busy(sess.ID) }, 2*time.Second, 5*time.Millisecond)
	_, err := env.chat.SendMessage(ctx, sess.ID, "second")
	require.ErrorIs(t, err, domain.ErrActiveRequest)

	other := env.createSession(t, "Other")
	env.gateway.mu.Lock()
	env.gateway.block = nil
	env.gateway.mu.Unlock()
	_, err = env.chat.SendMessage(ctx, other.ID, "independent")
	require.NoError(t, err)

	close(block)
	wg.Wait()
	assert.False(t, env.chat.Busy(sess.ID))
}

func TestSendMessageSurvivesCallerCancel(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "Detached")

	block := make(chan struct{})
	env.gateway.block = block

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := env.chat.SendMessage(ctx, sess.ID, "Hello")
		done <- err
	}()

	require.Eventually(t, func() bool { return env.chat.Busy(sess.ID) }, 2*time.Second, 5*time.Millisecond)
	cancel()
	close(block)
	require.NoError(t, <-done)

	msgs, err := env.sessions.History(context.Background(), sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
}

func TestSendMessageThinkingSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.sessions.Create(ctx, domain.NewSession{Name: "Think", Model: "phi3:mini"})
	require.NoError(t, err)
	_, err = env.chat.SendMessage(ctx, sess.ID, "Hello")
	require.NoError(t, err)

	disabled := domain.ThinkingDisabled
	temp := 1.2
	_, err = env.sessions.Configure(ctx, sess.ID, domain.SessionPatch{ThinkingMode: &disabled, Temperature: &temp})
	require.NoError(t, err)
	_, err = env.chat.SendMessage(ctx, sess.ID, "Again")
	require.NoError(t, err)

	env.gateway.mu.Lock()
	defer env.gateway.mu.Unlock()
	require.Len(t, env.gateway.settings, 2)
	assert.True(t, env.gateway.settings[0].Think)
	assert.False(t, env.gateway.settings[1].Think)
	assert.InDelta(t, 1.2, env.gateway.settings[1].Temperature, 1e-9)
	assert.Equal(t, domain.DefaultMaxTokens, env.gateway.settings[1].MaxTokens)
}
