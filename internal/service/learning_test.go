package service

import (
	"context"
	"testing"

	"github.com/set-night/omegachat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLearning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.learnings.Record(ctx, domain.NewLearning{Original: "2+2=5"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.learnings.Record(ctx, domain.NewLearning{Original: "a", Correction: "b", SessionID: "missing"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	l, err := env.learnings.Record(ctx, domain.NewLearning{Original: "2+2=5", Correction: "2+2=4"})
	require.NoError(t, err)
	assert.Equal(t, "User corrected: '2+2=5' with: '2+2=4'", l.Summary)

	all, err := env.learnings.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, l.ID, all[0].ID)
}

func TestCorrectLastReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.createSession(t, "Geo")

	_, err := env.learnings.CorrectLastReply(ctx, sess.ID, "Paris is in France")
	require.ErrorIs(t, err, domain.ErrValidation)

	env.gateway.reply = domain.Generation{Text: "Paris is in Spain", TokenCount: 4}
	_, err = env.chat.SendMessage(ctx, sess.ID, "Where is Paris?")
	require.NoError(t, err)

	l, err := env.learnings.CorrectLastReply(ctx, sess.ID, "Paris is in France")
	require.NoError(t, err)
	assert.Equal(t, "Paris is in Spain", l.Original)
	assert.Equal(t, "Paris is in France", l.Correction)
	assert.Equal(t, "Where is Paris?", l.Context)
	assert.Equal(t, sess.ID, l.SessionID)

	other := env.createSession(t, "Elsewhere")
	_, err = env.chat.SendMessage(ctx, other.ID, "Tell me about Paris")
	require.NoError(t, err)
	assert.Contains(t, env.gateway.lastPrompt()[0].Content, "Paris is in France")
}

func TestClearKeepsLearningsAcrossSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.createSession(t, "Scratch")

	_, err := env.chat.SendMessage(ctx, sess.ID, "Hello")
	require.NoError(t, err)
	_, err = env.learnings.CorrectLastReply(ctx, sess.ID, "Say hi back")
	require.NoError(t, err)

	require.NoError(t, env.sessions.Clear(ctx, sess.ID))
	require.NoError(t, env.sessions.Delete(ctx, sess.ID))

	all, err := env.learnings.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
