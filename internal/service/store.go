package service

import (
	"context"

	"github.com/set-night/omegachat/internal/domain"
)

// Store is the persistence contract shared by the sqlite and postgres stores.
type Store interface {
	CreateSession(ctx context.Context, in domain.NewSession) (*domain.Session, error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.SessionSummary, error)
	UpdateSession(ctx context.Context, id string, patch domain.SessionPatch) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, sessionID string, in domain.NewMessage) (*domain.Message, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	ClearMessages(ctx context.Context, sessionID string) error

	RecordLearning(ctx context.Context, in domain.NewLearning) (*domain.Learning, error)
	ListLearnings(ctx context.Context) ([]domain.Learning, error)
	RelevantLearnings(ctx context.Context, model string, limit int) ([]domain.Learning, error)
	MarkLearningsApplied(ctx context.Context, sessionID string, ids []int64, success bool) error
	LearningLogs(ctx context.Context, limit int) ([]domain.LearningLog, error)

	Ping(ctx context.Context) error
	Close() error
}

// Gateway is the model backend.
type Gateway interface {
	Generate(ctx context.Context, model string, messages []domain.PromptMessage, settings domain.GenerationSettings) (*domain.Generation, error)
	ListAvailableModels(ctx context.Context) []domain.ModelInfo
}

// Publisher receives realtime events. Publish must not block.
type Publisher interface {
	Publish(ev domain.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.Event) {}
