package httpapi

import (
	"net/http"

	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/service"
)

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models := s.sessions.Models(r.Context())
	s.metrics.SetModelsAvailable(len(models))

	out := make([]modelResponse, len(models))
	for i, m := range models {
		out[i] = toModelResponse(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":        out,
		"default_model": s.defaultModel,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]sessionResponse, len(list))
	for i := range list {
		out[i] = toSessionResponse(&list[i].Session)
		count := list[i].MessageCount
		out[i].MessageCount = &count
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.sessions.Create(r.Context(), domain.NewSession{
		Name:           req.Name,
		Model:          req.Model,
		SystemPrompt:   req.SystemPrompt,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ThinkingMode:   req.ThinkingMode,
		ThinkingBudget: req.ThinkingBudget,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msgs, err := s.sessions.History(r.Context(), id, s.historyLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := sessionDetailResponse{
		sessionResponse: toSessionResponse(sess),
		Messages:        make([]messageResponse, len(msgs)),
	}
	for i := range msgs {
		out.Messages[i] = *toMessageResponse(&msgs[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.sessions.Configure(r.Context(), r.PathValue("id"), domain.SessionPatch{
		Name:           req.Name,
		Model:          req.Model,
		SystemPrompt:   req.SystemPrompt,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ThinkingMode:   req.ThinkingMode,
		ThinkingBudget: req.ThinkingBudget,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage serves both the per-session route and POST /api/messages,
// where an absent session_id starts a new session.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if id := r.PathValue("id"); id != "" {
		req.SessionID = id
	}

	var (
		exch *service.Exchange
		err  error
	)
	if req.SessionID == "" {
		exch, err = s.chat.StartChat(r.Context(), domain.NewSession{
			Model:        req.Model,
			SystemPrompt: req.SystemPrompt,
			Temperature:  req.Temperature,
		}, req.Message)
	} else {
		exch, err = s.chat.SendMessage(r.Context(), req.SessionID, req.Message)
	}
	if err != nil {
		if exch == nil {
			writeError(w, r, err)
			return
		}
		// The turn is recorded; return it with the failure.
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Exchange: toExchangeResponse(exch)})
		return
	}
	writeJSON(w, http.StatusOK, toExchangeResponse(exch))
}
