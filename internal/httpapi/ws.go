package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/domain"
)

const wsReadLimit = 512

// handleWS streams realtime events. With session_id set only that session's
// events are sent. The first frame is a ready status.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID != "" {
		if _, err := s.sessions.Get(r.Context(), sessionID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade", "error", err)
		return
	}

	sub := s.hub.Subscribe(sessionID, config.SubscriberBuffer)
	s.metrics.SubscriberConnected()

	// Clients never send data; reading detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(wsReadLimit)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		sub.Close()
		s.metrics.SubscriberDisconnected()
		conn.Close()
		<-done
	}()

	status := domain.EventStatusReady
	if sessionID != "" && s.chat.Busy(sessionID) {
		status = domain.EventStatusGenerating
	}
	if err := s.writeEvent(conn, domain.Event{
		Type:      domain.EventSessionUpdated,
		SessionID: sessionID,
		Status:    status,
		Time:      time.Now().UTC(),
	}); err != nil {
		return
	}

	ping := time.NewTicker(config.WSPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(config.WSWriteTimeout))
				return
			}
			if err := s.writeEvent(conn, ev); err != nil {
				slog.Debug("websocket write", "error", err, "session_id", sessionID)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(config.WSWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev domain.Event) error {
	conn.SetWriteDeadline(time.Now().Add(config.WSWriteTimeout))
	return conn.WriteJSON(ev)
}
