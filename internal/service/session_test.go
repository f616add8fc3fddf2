package service

import (
	"context"
	"testing"

	"github.com/set-night/omegachat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.sessions.Create(ctx, domain.NewSession{Name: "  Review  "})
	require.NoError(t, err)
	assert.Equal(t, "Review", sess.Name)
	assert.Equal(t, testModel, sess.Model)
	assert.Equal(t, domain.ThinkingAuto, sess.ThinkingMode)
	assert.Equal(t, domain.DefaultMaxTokens, sess.MaxTokens)

	got, err := env.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Name, got.Name)
	assert.InDelta(t, sess.Temperature, got.Temperature, 1e-9)
}

func TestCreateSessionUsesCatalogTemperature(t *testing.T) {
	env := newTestEnv(t)

	sess, err := env.sessions.Create(context.Background(), domain.NewSession{Name: "Code", Model: "codellama:13b-instruct"})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, sess.Temperature, 1e-9)

	explicit := 1.1
	sess, err = env.sessions.Create(context.Background(), domain.NewSession{Name: "Code", Model: "codellama:13b-instruct", Temperature: &explicit})
	require.NoError(t, err)
	assert.InDelta(t, 1.1, sess.Temperature, 1e-9)
}

func TestCreateSessionRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hot := 2.5

	tests := []struct {
		name string
		in   domain.NewSession
	}{
		{"empty name", domain.NewSession{Name: "", Model: testModel}},
		{"unknown model", domain.NewSession{Name: "x", Model: "gpt-4"}},
		{"temperature out of range", domain.NewSession{Name: "x", Model: testModel, Temperature: &hot}},
		{"bad thinking mode", domain.NewSession{Name: "x", Model: testModel, ThinkingMode: "sometimes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.sessions.Create(ctx, tt.in)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestConfigureSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.createSession(t, "Test")

	prompt := "Answer in French."
	model := "qwen2:1.5b-instruct"
	updated, err := env.sessions.Configure(ctx, sess.ID, domain.SessionPatch{SystemPrompt: &prompt, Model: &model})
	require.NoError(t, err)
	assert.Equal(t, prompt, updated.SystemPrompt)
	assert.Equal(t, model, updated.Model)
	assert.Equal(t, "Test", updated.Name)

	_, err = env.sessions.Configure(ctx, sess.ID, domain.SessionPatch{})
	require.ErrorIs(t, err, domain.ErrValidation)

	unknown := "nope:1b"
	_, err = env.sessions.Configure(ctx, sess.ID, domain.SessionPatch{Model: &unknown})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.sessions.Configure(ctx, "missing", domain.SessionPatch{SystemPrompt: &prompt})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRenameStopsAutoNaming(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.sessions.Create(ctx, domain.NewSession{Name: domain.PlaceholderName, Model: testModel, AutoNamed: true})
	require.NoError(t, err)
	require.True(t, sess.AutoNamed)

	renamed, err := env.sessions.Rename(ctx, sess.ID, "Mine")
	require.NoError(t, err)
	assert.Equal(t, "Mine", renamed.Name)
	assert.False(t, renamed.AutoNamed)

	_, err = env.chat.SendMessage(ctx, sess.ID, "Write an essay about cats")
	require.NoError(t, err)
	got, err := env.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Name)
}

func TestDeleteAndClearSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess := env.createSession(t, "Doomed")
	_, err := env.chat.SendMessage(ctx, sess.ID, "Hello")
	require.NoError(t, err)

	require.NoError(t, env.sessions.Clear(ctx, sess.ID))
	msgs, err := env.sessions.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, env.sessions.Delete(ctx, sess.ID))
	_, err = env.sessions.Get(ctx, sess.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = env.sessions.History(ctx, sess.ID, 0)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.ErrorIs(t, env.sessions.Delete(ctx, sess.ID), domain.ErrSessionNotFound)

	types := env.publisher.types(sess.ID)
	assert.Equal(t, domain.EventSessionDeleted, types[len(types)-1])
}

func TestListSessionsCountsMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	older := env.createSession(t, "Older")
	newer := env.createSession(t, "Newer")
	_, err := env.chat.SendMessage(ctx, older.ID, "bump")
	require.NoError(t, err)

	list, err := env.sessions.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, 2, list[0].MessageCount)
	assert.Equal(t, newer.ID, list[1].ID)
	assert.Equal(t, 0, list[1].MessageCount)
}
