// Package events fans session events out to live subscribers, in process or through Redis.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/redis"
	"github.com/canopy-network/hydrodash/pkg/session"
)

// Hub is an in-process broadcaster of session events. Channels are only closed
// under the write lock, so Notify never sends on a closed channel.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan session.Event
	next   atomic.Uint64
	logger *zap.Logger
}

// NewHub returns a hub with no subscribers.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{subs: make(map[uint64]chan session.Event), logger: logger}
}

// Subscribe registers a subscriber with the given buffer. The returned cancel func
// unregisters it and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan session.Event, func()) {
	id := h.next.Add(1)
	ch := make(chan session.Event, buffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

// Notify delivers ev to every subscriber. Slow subscribers miss events instead of blocking.
func (h *Hub) Notify(_ context.Context, ev session.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Debug("Dropping event for slow subscriber",
				zap.Uint64("subscriber", id),
				zap.String("event", ev.Type))
		}
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// RedisNotifier publishes session events on Redis Pub/Sub and records them in the
// session history stream.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisNotifier returns a notifier backed by client.
func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

// Notify publishes ev on "hydrodash:<session>:<event>". Failures are logged only.
func (n *RedisNotifier) Notify(ctx context.Context, ev session.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("Failed to encode session event", zap.String("event", ev.Type), zap.Error(err))
		return
	}
	n.client.Publish(ctx, redis.EventChannel(ev.SessionID, ev.Type), payload)
	n.client.AppendHistory(ctx, ev.SessionID, ev.Type, payload)
}
