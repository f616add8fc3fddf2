package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/set-night/omegachat/internal/domain"
)

// DefaultLogLimit caps the learning-logs view.
const DefaultLogLimit = 50

type LearningService struct {
	store Store
}

func NewLearningService(store Store) *LearningService {
	return &LearningService{store: store}
}

// Record stores a correction. Learnings without a model apply to every model.
func (s *LearningService) Record(ctx context.Context, in domain.NewLearning) (*domain.Learning, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.SessionID != "" {
		if _, err := s.store.GetSession(ctx, in.SessionID); err != nil {
			return nil, err
		}
	}
	l, err := s.store.RecordLearning(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("record learning: %w", err)
	}
	slog.Info("learning recorded", "learning_id", l.ID, "session_id", l.SessionID)
	return l, nil
}

// CorrectLastReply records correction against the session's latest
// assistant reply, with the user turn before it as context.
func (s *LearningService) CorrectLastReply(ctx context.Context, sessionID, correction string) (*domain.Learning, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != domain.RoleAssistant {
			continue
		}
		in := domain.NewLearning{
			Original:   msgs[i].Content,
			Correction: correction,
			SessionID:  sessionID,
		}
		if i > 0 && msgs[i-1].Role == domain.RoleUser {
			in.Context = msgs[i-1].Content
		}
		return s.Record(ctx, in)
	}
	return nil, domain.Invalid("session has no assistant reply to correct")
}

// List returns every learning in creation order.
func (s *LearningService) List(ctx context.Context) ([]domain.Learning, error) {
	return s.store.ListLearnings(ctx)
}

// Logs returns the newest learnings with their application totals.
func (s *LearningService) Logs(ctx context.Context, limit int) ([]domain.LearningLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return s.store.LearningLogs(ctx, limit)
}
