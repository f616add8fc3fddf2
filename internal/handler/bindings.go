package handler

import "sync"

// Bindings tracks the active session of each chat. It implements
// middleware.SessionResolver.
type Bindings struct {
	mu       sync.RWMutex
	sessions map[int64]string
}

func NewBindings() *Bindings {
	return &Bindings{sessions: make(map[int64]string)}
}

func (b *Bindings) Current(chatID int64) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.sessions[chatID]
	return id, ok
}

func (b *Bindings) Bind(chatID int64, sessionID string) {
	b.mu.Lock()
	b.sessions[chatID] = sessionID
	b.mu.Unlock()
}

func (b *Bindings) Unbind(chatID int64) {
	b.mu.Lock()
	delete(b.sessions, chatID)
	b.mu.Unlock()
}

// Forget drops every binding to a deleted session.
func (b *Bindings) Forget(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for chatID, id := range b.sessions {
		if id == sessionID {
			delete(b.sessions, chatID)
		}
	}
}
