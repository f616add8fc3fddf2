package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/set-night/omegachat/internal/domain"
)

func (s *Server) handleListLearnings(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("view") == "logs" {
		s.handleLearningLogs(w, r)
		return
	}

	learnings, err := s.learnings.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]learningResponse, len(learnings))
	for i := range learnings {
		out[i] = toLearningResponse(&learnings[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"learnings": out})
}

func (s *Server) handleLearningLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, domain.Invalid("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	logs, err := s.learnings.Logs(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]learningResponse, len(logs))
	for i := range logs {
		out[i] = toLearningResponse(&logs[i].Learning)
		applications, successes := logs[i].Applications, logs[i].Successes
		out[i].Applications = &applications
		out[i].Successes = &successes
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": out})
}

// handleRecordLearning stores a correction. Without original text the
// correction applies to the session's latest assistant reply.
func (s *Server) handleRecordLearning(w http.ResponseWriter, r *http.Request) {
	var req recordLearningRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		l   *domain.Learning
		err error
	)
	if strings.TrimSpace(req.Original) == "" && req.SessionID != "" {
		l, err = s.learnings.CorrectLastReply(r.Context(), req.SessionID, req.Correction)
	} else {
		l, err = s.learnings.Record(r.Context(), domain.NewLearning{
			Original:   req.Original,
			Correction: req.Correction,
			SessionID:  req.SessionID,
			Context:    req.Context,
			Model:      req.Model,
		})
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLearningResponse(l))
}
