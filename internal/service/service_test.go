package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/set-night/omegachat"
	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/repository"
	"github.com/set-night/omegachat/internal/repository/sqlite"
	"github.com/stretchr/testify/require"
)

const testModel = "mistral:7b-instruct"

type fakeGateway struct {
	mu       sync.Mutex
	models   []domain.ModelInfo
	reply    domain.Generation
	err      error
	block    chan struct{}
	prompts  [][]domain.PromptMessage
	settings []domain.GenerationSettings
}

func (g *fakeGateway) Generate(ctx context.Context, model string, messages []domain.PromptMessage, settings domain.GenerationSettings) (*domain.Generation, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, messages)
	g.settings = append(g.settings, settings)
	block, reply, err := g.block, g.reply, g.err
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func (g *fakeGateway) ListAvailableModels(context.Context) []domain.ModelInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.ModelInfo(nil), g.models...)
}

func (g *fakeGateway) lastPrompt() []domain.PromptMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return nil
	}
	return g.prompts[len(g.prompts)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ev domain.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

// types returns the event types published for sessionID, in order.
func (p *recordingPublisher) types(sessionID string) []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.EventType
	for _, ev := range p.events {
		if ev.SessionID == sessionID {
			out = append(out, ev.Type)
		}
	}
	return out
}

type testEnv struct {
	store     *sqlite.Store
	gateway   *fakeGateway
	publisher *recordingPublisher
	sessions  *SessionService
	chat      *ChatService
	learnings *LearningService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	url := "sqlite://" + filepath.Join(t.TempDir(), "chat.db")
	migrations, err := repository.Migrations(omegachat.MigrationsFS, url)
	require.NoError(t, err)
	require.NoError(t, repository.RunMigrations(url, migrations))
	store, err := sqlite.Open(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)

	gw := &fakeGateway{
		models: catalog.Fallback(),
		reply:  domain.Generation{Text: "Hi! How can I help?", TokenCount: 12, Duration: 800_000_000},
	}
	pub := &recordingPublisher{}
	sessions := NewSessionService(store, gw, catalog, pub, testModel)

	return &testEnv{
		store:     store,
		gateway:   gw,
		publisher: pub,
		sessions:  sessions,
		chat: NewChatService(ChatDeps{
			Store:         store,
			Gateway:       gw,
			Sessions:      sessions,
			Catalog:       catalog,
			Publisher:     pub,
			HistoryWindow: 20,
			MaxLearnings:  5,
		}),
		learnings: NewLearningService(store),
	}
}

func (e *testEnv) createSession(t *testing.T, name string) *domain.Session {
	t.Helper()
	sess, err := e.sessions.Create(context.Background(), domain.NewSession{Name: name, Model: testModel})
	require.NoError(t, err)
	return sess
}
