package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/set-night/omegachat/internal/config"
)

const (
	healthHealthy   = "healthy"
	healthDegraded  = "degraded"
	healthUnhealthy = "unhealthy"
)

type healthResponse struct {
	Status           string  `json:"status"`
	Database         bool    `json:"database"`
	BackendConnected bool    `json:"backend_connected"`
	BackendVersion   string  `json:"backend_version,omitempty"`
	ModelsAvailable  int     `json:"models_available"`
	DefaultModel     string  `json:"default_model"`
	Subscribers      int     `json:"subscribers"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// handleHealth reports degraded when only the backend is down and
// unhealthy, with 503, when the store is.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.HealthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:        healthHealthy,
		Database:      true,
		DefaultModel:  s.defaultModel,
		Subscribers:   s.hub.Subscribers(),
		UptimeSeconds: time.Since(s.started).Seconds(),
	}

	if err := s.store.Ping(ctx); err != nil {
		slog.Warn("health: store ping failed", "error", err)
		resp.Database = false
	}
	if version, err := s.backend.Version(ctx); err != nil {
		slog.Debug("health: backend unreachable", "error", err)
	} else {
		resp.BackendConnected = true
		resp.BackendVersion = version
	}
	resp.ModelsAvailable = len(s.sessions.Models(ctx))

	status := http.StatusOK
	switch {
	case !resp.Database:
		resp.Status = healthUnhealthy
		status = http.StatusServiceUnavailable
	case !resp.BackendConnected:
		resp.Status = healthDegraded
	}
	writeJSON(w, status, resp)
}
