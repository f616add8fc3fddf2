package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleError marks a chat-visible generation failure. It is never sent to the backend.
	RoleError Role = "error"
)

func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant, RoleError:
		return nil
	}
	return Invalid("unknown role %q", r)
}

type Message struct {
	ID         int64
	SessionID  string
	Role       Role
	Content    string
	ThinkingMs *int64
	TokenCount *int
	CreatedAt  time.Time
}

type NewMessage struct {
	Role       Role
	Content    string
	ThinkingMs *int64
	TokenCount *int
}

func (m NewMessage) Validate() error {
	if err := m.Role.Validate(); err != nil {
		return err
	}
	if m.Role == RoleUser && strings.TrimSpace(m.Content) == "" {
		return Invalid("message content is empty")
	}
	if m.TokenCount != nil && *m.TokenCount < 0 {
		return Invalid("token count must not be negative")
	}
	return nil
}

// MessageStatus is the lifecycle state of an in-flight message.
type MessageStatus string

const (
	StatusPending    MessageStatus = "pending"
	StatusGenerating MessageStatus = "generating"
	StatusCompleted  MessageStatus = "completed"
	StatusFailed     MessageStatus = "failed"
)
