package httpapi

import (
	"time"

	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/service"
)

type sessionResponse struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Model          string              `json:"model"`
	SystemPrompt   string              `json:"system_prompt"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens"`
	ThinkingMode   domain.ThinkingMode `json:"thinking_mode"`
	ThinkingBudget int                 `json:"thinking_budget"`
	AutoNamed      bool                `json:"auto_named"`
	MessageCount   *int                `json:"message_count,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:             s.ID,
		Name:           s.Name,
		Model:          s.Model,
		SystemPrompt:   s.SystemPrompt,
		Temperature:    s.Temperature,
		MaxTokens:      s.MaxTokens,
		ThinkingMode:   s.ThinkingMode,
		ThinkingBudget: s.ThinkingBudget,
		AutoNamed:      s.AutoNamed,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type messageResponse struct {
	ID         int64       `json:"id"`
	SessionID  string      `json:"session_id"`
	Role       domain.Role `json:"role"`
	Content    string      `json:"content"`
	ThinkingMs *int64      `json:"thinking_ms,omitempty"`
	TokenCount *int        `json:"token_count,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

func toMessageResponse(m *domain.Message) *messageResponse {
	if m == nil {
		return nil
	}
	return &messageResponse{
		ID:         m.ID,
		SessionID:  m.SessionID,
		Role:       m.Role,
		Content:    m.Content,
		ThinkingMs: m.ThinkingMs,
		TokenCount: m.TokenCount,
		CreatedAt:  m.CreatedAt,
	}
}

type sessionDetailResponse struct {
	sessionResponse
	Messages []messageResponse `json:"messages"`
}

type exchangeResponse struct {
	Session     sessionResponse  `json:"session"`
	UserMessage *messageResponse `json:"user_message"`
	Reply       *messageResponse `json:"reply,omitempty"`
}

func toExchangeResponse(e *service.Exchange) *exchangeResponse {
	return &exchangeResponse{
		Session:     toSessionResponse(e.Session),
		UserMessage: toMessageResponse(e.User),
		Reply:       toMessageResponse(e.Reply),
	}
}

type modelResponse struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Description        string           `json:"description,omitempty"`
	Type               domain.ModelType `json:"type"`
	Size               string           `json:"size,omitempty"`
	SupportsThinking   bool             `json:"supports_thinking"`
	DefaultTemperature float64          `json:"default_temperature"`
	Installed          bool             `json:"installed"`
}

func toModelResponse(m domain.ModelInfo) modelResponse {
	return modelResponse{
		ID:                 m.ID,
		Name:               m.Name,
		Description:        m.Description,
		Type:               m.Type,
		Size:               m.Size,
		SupportsThinking:   m.SupportsThinking,
		DefaultTemperature: m.DefaultTemperature,
		Installed:          m.Installed,
	}
}

type learningResponse struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id,omitempty"`
	Original     string    `json:"original"`
	Correction   string    `json:"correction"`
	Context      string    `json:"context,omitempty"`
	Model        string    `json:"model,omitempty"`
	Summary      string    `json:"summary"`
	AppliedCount int       `json:"applied_count"`
	Score        float64   `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
	Applications *int      `json:"applications,omitempty"`
	Successes    *int      `json:"successes,omitempty"`
}

func toLearningResponse(l *domain.Learning) learningResponse {
	return learningResponse{
		ID:           l.ID,
		SessionID:    l.SessionID,
		Original:     l.Original,
		Correction:   l.Correction,
		Context:      l.Context,
		Model:        l.Model,
		Summary:      l.Summary,
		AppliedCount: l.AppliedCount,
		Score:        l.Score,
		CreatedAt:    l.CreatedAt,
	}
}

type createSessionRequest struct {
	Name           string              `json:"name"`
	Model          string              `json:"model"`
	SystemPrompt   string              `json:"system_prompt"`
	Temperature    *float64            `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens"`
	ThinkingMode   domain.ThinkingMode `json:"thinking_mode"`
	ThinkingBudget *int                `json:"thinking_budget"`
}

type updateSessionRequest struct {
	Name           *string              `json:"name"`
	Model          *string              `json:"model"`
	SystemPrompt   *string              `json:"system_prompt"`
	Temperature    *float64             `json:"temperature"`
	MaxTokens      *int                 `json:"max_tokens"`
	ThinkingMode   *domain.ThinkingMode `json:"thinking_mode"`
	ThinkingBudget *int                 `json:"thinking_budget"`
}

// sendMessageRequest is the body of a send. Model, SystemPrompt and
// Temperature only apply to a session started by the request.
type sendMessageRequest struct {
	SessionID    string   `json:"session_id"`
	Message      string   `json:"message"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	Temperature  *float64 `json:"temperature"`
}

type recordLearningRequest struct {
	Original   string `json:"original"`
	Correction string `json:"correction"`
	SessionID  string `json:"session_id"`
	Context    string `json:"context"`
	Model      string `json:"model"`
}
