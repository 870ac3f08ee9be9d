package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
)

// TestHub_PublishSubscribe delivers events to all subscribers until they unsubscribe.
func TestHub_PublishSubscribe(t *testing.T) {
	t.Parallel()

	h := NewHub(4)

	first, unsubscribeFirst := h.Subscribe()
	second, unsubscribeSecond := h.Subscribe()

	defer unsubscribeSecond()

	require.Equal(t, 2, h.Len())

	h.Publish(domain.Event{Kind: domain.EventPoll, Count: 2})

	require.Equal(t, domain.EventPoll, (<-first).Kind)
	require.Equal(t, 2, (<-second).Count)

	unsubscribeFirst()
	unsubscribeFirst()

	_, ok := <-first
	require.False(t, ok)
	require.Equal(t, 1, h.Len())
}

// TestHub_SlowSubscriberDropsEvents keeps the publisher from blocking on a full queue.
func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	t.Parallel()

	h := NewHub(1)

	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	h.Publish(domain.Event{Kind: domain.EventAlert, Count: 1})
	h.Publish(domain.Event{Kind: domain.EventAlert, Count: 2})

	require.Equal(t, 1, (<-ch).Count)
	require.Empty(t, ch)
}

// TestHub_Close closes current and future subscriptions.
func TestHub_Close(t *testing.T) {
	t.Parallel()

	h := NewHub(0)

	ch, unsubscribe := h.Subscribe()

	h.Close()
	h.Close()
	unsubscribe()

	_, ok := <-ch
	require.False(t, ok)

	late, _ := h.Subscribe()
	_, ok = <-late
	require.False(t, ok)

	h.Publish(domain.Event{Kind: domain.EventPoll})
}
