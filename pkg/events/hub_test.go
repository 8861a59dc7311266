package events

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/hydrodash/pkg/session"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))

	a, cancelA := hub.Subscribe(4)
	b, cancelB := hub.Subscribe(4)
	defer cancelB()
	assert.Equal(t, 2, hub.Subscribers())

	ev := session.Event{Type: session.EventDatasetLoaded, SessionID: "s1"}
	hub.Notify(context.Background(), ev)

	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-b)

	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers())

	// Cancelling twice is harmless.
	cancelA()
}

func TestHubCancelDuringNotify(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, stop := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev := session.Event{Type: session.EventViewUpdated, SessionID: "s1"}
			for ctx.Err() == nil {
				hub.Notify(ctx, ev)
			}
		}()
	}

	for range 2000 {
		_, cancel := hub.Subscribe(1)
		cancel()
	}
	stop()
	wg.Wait()

	assert.Zero(t, hub.Subscribers())
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Notify(context.Background(), session.Event{Type: session.EventViewUpdated})
	hub.Notify(context.Background(), session.Event{Type: session.EventDatasetError})

	got := <-ch
	assert.Equal(t, session.EventViewUpdated, got.Type)
	select {
	case extra := <-ch:
		require.Failf(t, "unexpected event", "%+v", extra)
	default:
	}
}

func TestHubAsSessionNotifier(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	ch, cancel := hub.Subscribe(4)
	defer cancel()

	s := session.New("s1", nil, zaptest.NewLogger(t), hub)
	require.NoError(t, s.LoadText(context.Background(), "", "empty.csv"))

	ev := <-ch
	assert.Equal(t, session.EventDatasetLoaded, ev.Type)
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, "empty.csv", ev.Status.Source)
}
