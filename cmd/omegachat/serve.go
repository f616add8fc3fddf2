package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/events"
	"github.com/set-night/omegachat/internal/handler"
	"github.com/set-night/omegachat/internal/httpapi"
	"github.com/set-night/omegachat/internal/metrics"
	"github.com/set-night/omegachat/internal/middleware"
	"github.com/set-night/omegachat/internal/service"
	"github.com/set-night/omegachat/internal/telegram"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the realtime gateway and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg())
		},
	}
}

type services struct {
	sessions  *service.SessionService
	chat      *service.ChatService
	learnings *service.LearningService
	limiter   *middleware.Limiter
}

func serve(ctx context.Context, cfg *config.Config) error {
	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migrateDatabase(cfg.DatabaseURL); err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	gateway, catalog, err := newGateway(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	hub := events.NewHub(func(domain.Event) { m.EventDropped() })

	sessions := service.NewSessionService(store, gateway, catalog, hub, cfg.DefaultModel)
	svc := services{
		sessions: sessions,
		chat: service.NewChatService(service.ChatDeps{
			Store:         store,
			Gateway:       gateway,
			Sessions:      sessions,
			Catalog:       catalog,
			Publisher:     hub,
			Metrics:       m,
			HistoryWindow: cfg.HistoryWindow,
			MaxLearnings:  cfg.MaxLearnings,
		}),
		learnings: service.NewLearningService(store),
		limiter:   middleware.NewLimiter(cfg.RateLimitPerMinute, config.RateLimitBurst),
	}

	api := httpapi.New(httpapi.Deps{
		Sessions:     svc.sessions,
		Chat:         svc.chat,
		Learnings:    svc.learnings,
		Hub:          hub,
		Store:        store,
		Backend:      gateway,
		Metrics:      m,
		Registry:     reg,
		Limiter:      svc.limiter,
		DefaultModel: cfg.DefaultModel,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", cfg.HTTPAddr, "model", cfg.DefaultModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Closing the hub ends open websocket streams before the server drains.
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	if cfg.TelegramEnabled() {
		if err := startBot(gctx, g, cfg, svc, hub); err != nil {
			stop()
			g.Wait()
			return err
		}
	}

	err = g.Wait()
	slog.Info("server stopped")
	return err
}

// startBot connects the Telegram front-end and, when an alert chat is
// configured, forwards generation failures to it.
func startBot(ctx context.Context, g *errgroup.Group, cfg *config.Config, svc services, hub *events.Hub) error {
	bindings := handler.NewBindings()

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(bindings),
			middleware.LoadSession(bindings),
			middleware.Logging(),
			middleware.RateLimit(svc.limiter),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleText(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.TelegramToken, opts...)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}

	h = handler.New(handler.Deps{
		Bot:       b,
		Sessions:  svc.sessions,
		Chat:      svc.chat,
		Learnings: svc.learnings,
		Bindings:  bindings,
	})
	h.Register()

	if cfg.TelegramAlertChatID != 0 {
		notifier := telegram.NewNotifier(b, cfg.TelegramAlertChatID, cfg.TelegramAlertTopic)
		sub := hub.Subscribe("", config.SubscriberBuffer)
		g.Go(func() error {
			defer sub.Close()
			notifier.Run(ctx, sub.C)
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("starting bot", "username", me.Username, "id", me.ID)
		b.Start(ctx)
		slog.Info("bot stopped gracefully")
		return nil
	})
	return nil
}
