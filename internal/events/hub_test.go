package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/set-night/omegachat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, sub *Subscription) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return domain.Event{}
	}
}

func TestPublishFiltersBySession(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	all := h.Subscribe("", 4)
	one := h.Subscribe("s1", 4)

	h.Publish(domain.Event{Type: domain.EventGenerationStarted, SessionID: "s2"})
	h.Publish(domain.Event{Type: domain.EventGenerationCompleted, SessionID: "s1"})

	assert.Equal(t, "s2", receive(t, all).SessionID)
	assert.Equal(t, "s1", receive(t, all).SessionID)

	ev := receive(t, one)
	assert.Equal(t, domain.EventGenerationCompleted, ev.Type)
	assert.Empty(t, one.C)
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	var dropped atomic.Int32
	h := NewHub(func(domain.Event) { dropped.Add(1) })
	defer h.Close()

	sub := h.Subscribe("s1", 2)
	for range 5 {
		h.Publish(domain.Event{SessionID: "s1"})
	}

	assert.Len(t, sub.C, 2)
	assert.Equal(t, uint64(3), h.Dropped())
	assert.Equal(t, int32(3), dropped.Load())
}

func TestSubscriptionClose(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe("", 1)
	require.Equal(t, 1, h.Subscribers())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.Subscribers())

	_, ok := <-sub.C
	assert.False(t, ok)

	h.Publish(domain.Event{SessionID: "s1"})
	h.Close()
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	h := NewHub(nil)
	sub := h.Subscribe("", 1)

	h.Close()
	_, ok := <-sub.C
	assert.False(t, ok)

	sub.Close()
	late := h.Subscribe("", 1)
	_, ok = <-late.C
	assert.False(t, ok)
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		sub := h.Subscribe("", 1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.Publish(domain.Event{SessionID: "s", MessageID: int64(i)})
			}
		}()
		go func() {
			defer wg.Done()
			for range sub.C {
				sub.Close()
			}
		}()
	}
	wg.Wait()
}
