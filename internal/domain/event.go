package domain

import "time"

type EventType string

const (
	EventMessageReceived     EventType = "message_received"
	EventGenerationStarted   EventType = "generation_started"
	EventGenerationCompleted EventType = "generation_completed"
	EventGenerationFailed    EventType = "generation_failed"
	EventSessionUpdated      EventType = "session_updated"
	EventSessionDeleted      EventType = "session_deleted"
)

// Client-facing status values.
const (
	EventStatusReady      = "ready"
	EventStatusGenerating = "generating"
	EventStatusError      = "error"
)

// Event is a realtime notification about a session.
type Event struct {
	Type       EventType     `json:"type"`
	SessionID  string        `json:"session_id"`
	MessageID  int64         `json:"message_id,omitempty"`
	State      MessageStatus `json:"state,omitempty"`
	Status     string        `json:"status"`
	Model      string        `json:"model,omitempty"`
	ThinkingMs int64         `json:"thinking_ms,omitempty"`
	TokenCount int           `json:"token_count,omitempty"`
	Error      string        `json:"error,omitempty"`
	Time       time.Time     `json:"time"`
}
