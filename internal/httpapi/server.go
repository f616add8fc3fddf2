// Package httpapi exposes the chat service over JSON HTTP and a websocket
// status channel.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/set-night/omegachat/internal/events"
	"github.com/set-night/omegachat/internal/metrics"
	"github.com/set-night/omegachat/internal/middleware"
	"github.com/set-night/omegachat/internal/service"
	httpmetrics "github.com/slok/go-http-metrics/metrics/prometheus"
	metricsmw "github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
)

// Pinger checks the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend reports the model backend version.
type Backend interface {
	Version(ctx context.Context) (string, error)
}

type Server struct {
	sessions     *service.SessionService
	chat         *service.ChatService
	learnings    *service.LearningService
	hub          *events.Hub
	store        Pinger
	backend      Backend
	metrics      *metrics.Metrics
	limiter      *middleware.Limiter
	defaultModel string
	historyLimit int

	mux      *http.ServeMux
	mdlw     metricsmw.Middleware
	upgrader websocket.Upgrader
	started  time.Time
}

type Deps struct {
	Sessions     *service.SessionService
	Chat         *service.ChatService
	Learnings    *service.LearningService
	Hub          *events.Hub
	Store        Pinger
	Backend      Backend
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
	Limiter      *middleware.Limiter
	DefaultModel string
	// HistoryLimit caps the messages returned with a session. Zero returns all.
	HistoryLimit int
}

func New(deps Deps) *Server {
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		sessions:     deps.Sessions,
		chat:         deps.Chat,
		learnings:    deps.Learnings,
		hub:          deps.Hub,
		store:        deps.Store,
		backend:      deps.Backend,
		metrics:      deps.Metrics,
		limiter:      deps.Limiter,
		defaultModel: deps.DefaultModel,
		historyLimit: deps.HistoryLimit,
		mux:          http.NewServeMux(),
		mdlw: metricsmw.New(metricsmw.Config{
			Recorder: httpmetrics.NewRecorder(httpmetrics.Config{Registry: reg}),
		}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		started: time.Now(),
	}
	s.routes(reg)
	return s
}

func (s *Server) routes(reg *prometheus.Registry) {
	s.handle("GET /api/models", s.handleListModels)

	s.handle("GET /api/sessions", s.handleListSessions)
	s.handle("POST /api/sessions", s.handleCreateSession)
	s.handle("GET /api/sessions/{id}", s.handleGetSession)
	s.handle("PATCH /api/sessions/{id}", s.handleUpdateSession)
	s.handle("DELETE /api/sessions/{id}", s.handleDeleteSession)
	s.handle("POST /api/sessions/{id}/messages", s.handleSendMessage)
	s.handle("POST /api/sessions/{id}/clear", s.handleClearSession)
	s.handle("POST /api/messages", s.handleSendMessage)

	s.handle("GET /api/learnings", s.handleListLearnings)
	s.handle("POST /api/learnings", s.handleRecordLearning)

	// Hijacked connections bypass the HTTP metrics recorder.
	s.mux.HandleFunc("GET /api/ws", s.handleWS)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
}

// handle registers h under pattern, labelled by the pattern in HTTP metrics.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, std.Handler(pattern, s.mdlw, h))
}

// Handler returns the root handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = rateLimit(s.limiter, h)
	h = logRequests(h)
	h = recoverPanics(h)
	return requestID(h)
}
