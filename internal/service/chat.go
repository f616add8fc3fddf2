package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/metrics"
)

// Exchange is the outcome of one SendMessage call. Reply is the assistant
// message, or the error message persisted when generation failed.
type Exchange struct {
	Session *domain.Session
	User    *domain.Message
	Reply   *domain.Message
}

type ChatService struct {
	store         Store
	gateway       Gateway
	sessions      *SessionService
	catalog       *config.Catalog
	publisher     Publisher
	metrics       *metrics.Metrics
	historyWindow int
	maxLearnings  int

	mu     sync.Mutex
	active map[string]struct{}
}

type ChatDeps struct {
	Store         Store
	Gateway       Gateway
	Sessions      *SessionService
	Catalog       *config.Catalog
	Publisher     Publisher
	Metrics       *metrics.Metrics
	HistoryWindow int
	MaxLearnings  int
}

func NewChatService(deps ChatDeps) *ChatService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &ChatService{
		store:         deps.Store,
		gateway:       deps.Gateway,
		sessions:      deps.Sessions,
		catalog:       deps.Catalog,
		publisher:     publisher,
		metrics:       deps.Metrics,
		historyWindow: deps.HistoryWindow,
		maxLearnings:  deps.MaxLearnings,
		active:        make(map[string]struct{}),
	}
}

// SendMessage runs one user turn. An empty sessionID creates a new session
// with the default model, named after the message.
//
// The user message is persisted before the backend is called. A failed
// generation persists an error message and returns the exchange together
// with the backend error.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, text string) (*Exchange, error) {
	return s.send(ctx, sessionID, domain.NewSession{}, text)
}

// StartChat runs the first turn of a new session created from in. The
// session is named after the message.
func (s *ChatService) StartChat(ctx context.Context, in domain.NewSession, text string) (*Exchange, error) {
	return s.send(ctx, "", in, text)
}

func (s *ChatService) send(ctx context.Context, sessionID string, in domain.NewSession, text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Invalid("message is empty")
	}

	if sessionID == "" {
		in.Name = domain.PlaceholderName
		in.AutoNamed = true
		sess, err := s.sessions.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		sessionID = sess.ID
	}

	if !s.tryAcquire(sessionID) {
		return nil, domain.ErrActiveRequest
	}
	defer s.release(sessionID)

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListMessages(ctx, sessionID, s.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	learnings, err := s.store.RelevantLearnings(ctx, sess.Model, s.maxLearnings)
	if err != nil {
		return nil, fmt.Errorf("load learnings: %w", err)
	}
	prompt := BuildPrompt(sess, learnings, history, text)

	userMsg, err := s.store.AppendMessage(ctx, sessionID, domain.NewMessage{Role: domain.RoleUser, Content: text})
	if err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	s.publish(domain.Event{
		Type:      domain.EventMessageReceived,
		SessionID: sessionID,
		MessageID: userMsg.ID,
		State:     domain.StatusPending,
		Status:    domain.EventStatusGenerating,
		Model:     sess.Model,
	})

	// From here on the turn is recorded even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	exch := &Exchange{Session: sess, User: userMsg}

	s.publish(domain.Event{
		Type:      domain.EventGenerationStarted,
		SessionID: sessionID,
		MessageID: userMsg.ID,
		State:     domain.StatusGenerating,
		Status:    domain.EventStatusGenerating,
		Model:     sess.Model,
	})

	model := s.catalog.Describe(sess.Model)
	start := time.Now()
	gen, genErr := s.gateway.Generate(ctx, sess.Model, prompt, generationSettings(sess, model))
	s.applyLearnings(ctx, sessionID, learnings, genErr == nil)

	if genErr != nil {
		s.metrics.ObserveGeneration(sess.Model, outcome(genErr), time.Since(start), 0)
		return s.fail(ctx, exch, text, genErr)
	}
	s.metrics.ObserveGeneration(sess.Model, metrics.OutcomeSuccess, gen.Duration, gen.TokenCount)

	thinkingMs := gen.ThinkingMs()
	tokens := gen.TokenCount
	reply, err := s.store.AppendMessage(ctx, sessionID, domain.NewMessage{
		Role:       domain.RoleAssistant,
		Content:    gen.Text,
		ThinkingMs: &thinkingMs,
		TokenCount: &tokens,
	})
	if err != nil {
		return s.fail(ctx, exch, text, fmt.Errorf("save reply: %w", err))
	}
	exch.Reply = reply

	s.publish(domain.Event{
		Type:       domain.EventGenerationCompleted,
		SessionID:  sessionID,
		MessageID:  reply.ID,
		State:      domain.StatusCompleted,
		Status:     domain.EventStatusReady,
		Model:      sess.Model,
		ThinkingMs: thinkingMs,
		TokenCount: tokens,
	})

	exch.Session = s.refreshSession(ctx, sess, text)
	return exch, nil
}

// fail records a chat-visible error message for genErr. An auto-named
// session is still named after the message.
func (s *ChatService) fail(ctx context.Context, exch *Exchange, text string, genErr error) (*Exchange, error) {
	sessionID := exch.User.SessionID
	slog.Error("generate reply", "error", genErr, "session_id", sessionID, "model", exch.Session.Model)

	reply, err := s.store.AppendMessage(ctx, sessionID, domain.NewMessage{
		Role:    domain.RoleError,
		Content: FailureText(genErr, exch.Session.Model),
	})
	if err != nil {
		slog.Error("save error message", "error", err, "session_id", sessionID)
	} else {
		exch.Reply = reply
	}

	ev := domain.Event{
		Type:      domain.EventGenerationFailed,
		SessionID: sessionID,
		MessageID: exch.User.ID,
		State:     domain.StatusFailed,
		Status:    domain.EventStatusError,
		Model:     exch.Session.Model,
		Error:     FailureText(genErr, exch.Session.Model),
	}
	if reply != nil {
		ev.MessageID = reply.ID
	}
	s.publish(ev)

	exch.Session = s.refreshSession(ctx, exch.Session, text)
	return exch, genErr
}

// refreshSession reloads the session after a turn. A session still carrying
// its placeholder name is named after text.
func (s *ChatService) refreshSession(ctx context.Context, sess *domain.Session, text string) *domain.Session {
	if sess.AutoNamed {
		name := SessionName(text)
		autoNamed := false
		renamed, err := s.store.UpdateSession(ctx, sess.ID, domain.SessionPatch{Name: &name, AutoNamed: &autoNamed})
		if err == nil {
			s.publish(domain.Event{
				Type:      domain.EventSessionUpdated,
				SessionID: sess.ID,
				Status:    domain.EventStatusReady,
				Model:     renamed.Model,
			})
			return renamed
		}
		slog.Warn("auto-name session", "error", err, "session_id", sess.ID)
	}

	refreshed, err := s.store.GetSession(ctx, sess.ID)
	if err != nil {
		slog.Warn("reload session", "error", err, "session_id", sess.ID)
		return sess
	}
	return refreshed
}

func (s *ChatService) applyLearnings(ctx context.Context, sessionID string, learnings []domain.Learning, success bool) {
	if len(learnings) == 0 {
		return
	}
	ids := make([]int64, len(learnings))
	for i, l := range learnings {
		ids[i] = l.ID
	}
	if err := s.store.MarkLearningsApplied(ctx, sessionID, ids, success); err != nil {
		slog.Error("mark learnings applied", "error", err, "session_id", sessionID)
		return
	}
	s.metrics.LearningsApplied(len(ids))
}

func (s *ChatService) publish(ev domain.Event) {
	ev.Time = time.Now().UTC()
	s.publisher.Publish(ev)
}

// Busy reports whether a generation is in flight for the session.
func (s *ChatService) Busy(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[sessionID]
	return ok
}

// tryAcquire admits one turn per session; a second send is rejected, not queued.
func (s *ChatService) tryAcquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[sessionID]; ok {
		return false
	}
	s.active[sessionID] = struct{}{}
	return true
}

func (s *ChatService) release(sessionID string) {
	s.mu.Lock()
	delete(s.active, sessionID)
	s.mu.Unlock()
}

// FailureText is the chat-visible text stored for a failed generation.
func FailureText(err error, model string) string {
	switch {
	case errors.Is(err, domain.ErrBackendTimeout):
		return "The model took too long to respond. Please try again."
	case errors.Is(err, domain.ErrModelNotFound):
		return fmt.Sprintf("Model %s is not installed on the backend.", model)
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "The model backend is unavailable. Please try again later."
	default:
		return "Generation failed. Please try again."
	}
}

func outcome(err error) string {
	if errors.Is(err, domain.ErrBackendTimeout) {
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeError
}
