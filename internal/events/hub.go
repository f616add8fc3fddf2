// Package events is the in-process realtime bus. Delivery is best effort and
// at most once: a subscriber that falls behind loses events instead of
// slowing the publisher.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/set-night/omegachat/internal/domain"
)

// DropFunc is called for every event dropped on a full subscriber buffer.
type DropFunc func(ev domain.Event)

type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	dropped atomic.Uint64
	onDrop  DropFunc
}

func NewHub(onDrop DropFunc) *Hub {
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		onDrop: onDrop,
	}
}

// Subscription receives events on C until Close is called or the hub shuts down.
type Subscription struct {
	C <-chan domain.Event

	id        uint64
	sessionID string
	ch        chan domain.Event
	hub       *Hub
	once      sync.Once
}

// Subscribe registers a subscriber. An empty sessionID receives events of every session.
func (h *Hub) Subscribe(sessionID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan domain.Event, buffer)
	sub := &Subscription{C: ch, sessionID: sessionID, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	return sub
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if _, ok := s.hub.subs[s.id]; ok {
			delete(s.hub.subs, s.id)
			close(s.ch)
		}
	})
}

// Publish fans ev out without blocking.
func (h *Hub) Publish(ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.sessionID != "" && sub.sessionID != ev.SessionID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
			if h.onDrop != nil {
				h.onDrop(ev)
			}
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close ends every subscription. Later publishes are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
