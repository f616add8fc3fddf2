package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
)

type SessionService struct {
	store        Store
	gateway      Gateway
	catalog      *config.Catalog
	publisher    Publisher
	defaultModel string
}

func NewSessionService(store Store, gateway Gateway, catalog *config.Catalog, publisher Publisher, defaultModel string) *SessionService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &SessionService{
		store:        store,
		gateway:      gateway,
		catalog:      catalog,
		publisher:    publisher,
		defaultModel: defaultModel,
	}
}

// Create inserts a session. An empty model selects the default model, and an
// unset temperature takes the model's catalog default.
func (s *SessionService) Create(ctx context.Context, in domain.NewSession) (*domain.Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Model == "" {
		in.Model = s.defaultModel
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	model, err := s.resolveModel(ctx, in.Model)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.CreateSession(ctx, in.WithDefaults(model.DefaultTemperature))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.publishUpdated(sess)
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.GetSession(ctx, id)
}

// List returns every session, most recently updated first.
func (s *SessionService) List(ctx context.Context) ([]domain.SessionSummary, error) {
	return s.store.ListSessions(ctx)
}

// History returns the last limit messages of a session in chronological
// order. A non-positive limit returns all of them.
func (s *SessionService) History(ctx context.Context, id string, limit int) ([]domain.Message, error) {
	if _, err := s.store.GetSession(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Rename sets a user-chosen name, which stops automatic naming.
func (s *SessionService) Rename(ctx context.Context, id, name string) (*domain.Session, error) {
	autoNamed := false
	return s.Configure(ctx, id, domain.SessionPatch{Name: &name, AutoNamed: &autoNamed})
}

// Configure merges the provided settings into the session.
func (s *SessionService) Configure(ctx context.Context, id string, patch domain.SessionPatch) (*domain.Session, error) {
	if patch.IsEmpty() {
		return nil, domain.Invalid("no fields to update")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Model != nil {
		if _, err := s.resolveModel(ctx, *patch.Model); err != nil {
			return nil, err
		}
	}
	if patch.Name != nil && patch.AutoNamed == nil {
		autoNamed := false
		patch.AutoNamed = &autoNamed
	}

	sess, err := s.store.UpdateSession(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	s.publishUpdated(sess)
	return sess, nil
}

func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.publisher.Publish(domain.Event{
		Type:      domain.EventSessionDeleted,
		SessionID: id,
		Status:    domain.EventStatusReady,
		Time:      time.Now().UTC(),
	})
	return nil
}

// Clear removes the session's messages. Learnings are kept.
func (s *SessionService) Clear(ctx context.Context, id string) error {
	if err := s.store.ClearMessages(ctx, id); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	s.publisher.Publish(domain.Event{
		Type:      domain.EventSessionUpdated,
		SessionID: id,
		Status:    domain.EventStatusReady,
		Time:      time.Now().UTC(),
	})
	return nil
}

// Models lists the models sessions may use.
func (s *SessionService) Models(ctx context.Context) []domain.ModelInfo {
	return s.gateway.ListAvailableModels(ctx)
}

// resolveModel accepts models the backend reports and models in the catalog.
func (s *SessionService) resolveModel(ctx context.Context, id string) (domain.ModelInfo, error) {
	if m, ok := domain.FindModel(s.gateway.ListAvailableModels(ctx), id); ok {
		return m, nil
	}
	if m, ok := s.catalog.Lookup(id); ok {
		return m, nil
	}
	return domain.ModelInfo{}, domain.Invalid("unknown model %q", id)
}

func (s *SessionService) publishUpdated(sess *domain.Session) {
	s.publisher.Publish(domain.Event{
		Type:      domain.EventSessionUpdated,
		SessionID: sess.ID,
		Status:    domain.EventStatusReady,
		Model:     sess.Model,
		Time:      time.Now().UTC(),
	})
}
