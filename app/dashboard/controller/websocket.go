package controller

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/redis"
	"github.com/canopy-network/hydrodash/pkg/session"
)

// ClientMessage represents messages sent by WebSocket clients.
type ClientMessage struct {
	Action    string `json:"action"` // "subscribe" or "unsubscribe"
	SessionID string `json:"sessionId"`
}

// ServerMessage represents messages sent to WebSocket clients.
type ServerMessage struct {
	Type    string `json:"type"` // session event type, "subscribed", "unsubscribed", "error", "info"
	Payload any    `json:"payload"`
}

// clientSubscriptions tracks the sessions a client listens to.
type clientSubscriptions struct {
	mu       sync.RWMutex
	sessions map[string]bool
}

func newClientSubscriptions() *clientSubscriptions {
	return &clientSubscriptions{
		sessions: make(map[string]bool),
	}
}

func (cs *clientSubscriptions) subscribe(sessionID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.sessions[sessionID] = true
}

func (cs *clientSubscriptions) unsubscribe(sessionID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.sessions, sessionID)
}

func (cs *clientSubscriptions) isSubscribed(sessionID string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.sessions[sessionID]
}

// HandleWebSocket upgrades the connection and streams session events.
// The caller's own session (header or cookie) is subscribed on connect.
//
// Protocol:
// Client sends: {"action": "subscribe", "sessionId": "..."}
// Client sends: {"action": "unsubscribe", "sessionId": "..."}
//
// Server sends:
// - {"type": "dataset.loaded" | "view.updated" | "dataset.error", "payload": {...session event...}}
// - {"type": "subscribed", "payload": {"sessionId": "..."}}
// - {"type": "unsubscribed", "payload": {"sessionId": "..."}}
// - {"type": "error", "payload": {"message": "..."}}
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	own := sessionID(r)

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer func(conn *websocket.Conn) {
		if err := conn.Close(); err != nil {
			c.App.Logger.Debug("Failed to close WebSocket connection", zap.Error(err))
		}
	}(conn)

	c.App.Logger.Info("WebSocket client connected", zap.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	subs := newClientSubscriptions()
	send := make(chan ServerMessage, 256)

	if own != "" {
		subs.subscribe(own)
		send <- ServerMessage{Type: "subscribed", Payload: map[string]string{"sessionId": own}}
	}

	var producers, writer sync.WaitGroup
	guard := func(wg *sync.WaitGroup, name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					c.App.Logger.Error("Panic in WebSocket goroutine",
						zap.String("goroutine", name),
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())),
						zap.String("remote_addr", r.RemoteAddr))
					cancel()
				}
			}()
			fn()
		}()
	}

	guard(&producers, "events", func() { c.streamEvents(ctx, send, subs) })
	guard(&producers, "pings", func() { c.sendPings(ctx, conn) })
	guard(&writer, "writer", func() {
		c.writeMessages(conn, send)
		cancel()
	})

	// Blocks until the connection closes.
	c.readClientMessages(ctx, conn, cancel, subs, send)

	// Producers stop before send is closed.
	cancel()
	producers.Wait()
	close(send)
	writer.Wait()

	c.App.Logger.Info("WebSocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// streamEvents forwards session events from Redis when enabled, else from the in-process hub.
func (c *Controller) streamEvents(ctx context.Context, send chan<- ServerMessage, subs *clientSubscriptions) {
	if c.App.RedisClient != nil {
		c.subscribeToRedis(ctx, send, subs)
		return
	}
	c.subscribeToHub(ctx, send, subs)
}

func (c *Controller) subscribeToHub(ctx context.Context, send chan<- ServerMessage, subs *clientSubscriptions) {
	events, unsubscribe := c.App.Hub.Subscribe(64)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !subs.isSubscribed(ev.SessionID) {
				continue
			}
			select {
			case send <- ServerMessage{Type: ev.Type, Payload: ev}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// subscribeToRedis subscribes to every session channel and forwards the events the client
// listens to. A lost subscription is retried with exponential backoff until ctx is done.
func (c *Controller) subscribeToRedis(ctx context.Context, send chan<- ServerMessage, subs *clientSubscriptions) {
	const (
		initialBackoff = 1 * time.Second
		maxBackoff     = 30 * time.Second
		backoffFactor  = 2.0
		jitterFactor   = 0.1
	)

	backoff := initialBackoff
	attemptNum := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		attemptNum++
		subscriptionErr := c.attemptRedisSubscription(ctx, redis.EventPattern, send, subs, attemptNum)
		if ctx.Err() != nil {
			return
		}

		if subscriptionErr != nil {
			c.App.Logger.Warn("Redis subscription failed, will retry",
				zap.Error(subscriptionErr),
				zap.Int("attempt", attemptNum),
				zap.Duration("backoff", backoff))
		} else {
			c.App.Logger.Warn("Redis subscription channel closed, will retry",
				zap.Int("attempt", attemptNum),
				zap.Duration("backoff", backoff))
		}

		select {
		case send <- ServerMessage{
			Type: "error",
			Payload: map[string]any{
				"message":     "Redis connection lost, attempting to reconnect...",
				"retryIn":     backoff.Seconds(),
				"attempt":     attemptNum,
				"recoverable": true,
			},
		}:
		case <-ctx.Done():
			return
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}

		backoff = calculateNextBackoff(backoff, maxBackoff, backoffFactor, jitterFactor)
	}
}

func (c *Controller) attemptRedisSubscription(
	ctx context.Context,
	pattern string,
	send chan<- ServerMessage,
	subs *clientSubscriptions,
	attemptNum int,
) error {
	pubsub := c.App.RedisClient.PSubscribe(ctx, pattern)
	defer func() {
		if err := pubsub.Close(); err != nil {
			c.App.Logger.Debug("Error closing Redis subscription", zap.Error(err))
		}
	}()

	receiveCtx, receiveCancel := context.WithTimeout(ctx, 5*time.Second)
	defer receiveCancel()

	if _, err := pubsub.Receive(receiveCtx); err != nil {
		return fmt.Errorf("failed to confirm Redis subscription: %w", err)
	}

	c.App.Logger.Debug("Subscribed to Redis pattern",
		zap.String("pattern", pattern),
		zap.Int("attempt", attemptNum))

	if attemptNum > 1 {
		select {
		case send <- ServerMessage{Type: "info", Payload: map[string]any{"message": "Redis connection established", "attempt": attemptNum}}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return c.processRedisMessages(ctx, pubsub, send, subs)
}

func (c *Controller) processRedisMessages(
	ctx context.Context,
	pubsub *goredis.PubSub,
	send chan<- ServerMessage,
	subs *clientSubscriptions,
) error {
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			sessionID, event, valid := redis.ParseEventChannel(msg.Channel)
			if !valid {
				continue
			}
			if !subs.isSubscribed(sessionID) {
				continue
			}

			var ev session.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				c.App.Logger.Error("Failed to parse Redis message",
					zap.Error(err),
					zap.String("channel", msg.Channel))
				continue
			}

			select {
			case send <- ServerMessage{Type: event, Payload: ev}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// calculateNextBackoff grows current by factor, capped at max, with +/- jitterFactor noise.
func calculateNextBackoff(current, max time.Duration, factor, jitterFactor float64) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		next = max
	}

	jitter := float64(next) * jitterFactor * (2*rand.Float64() - 1)
	nextWithJitter := time.Duration(float64(next) + jitter)

	if nextWithJitter < current {
		nextWithJitter = current
	}
	if nextWithJitter > max {
		nextWithJitter = max
	}
	return nextWithJitter
}

// sendPings sends periodic WebSocket ping frames to keep the connection alive.
func (c *Controller) sendPings(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				c.App.Logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// writeMessages writes messages from the send channel to the WebSocket connection.
func (c *Controller) writeMessages(conn *websocket.Conn, send <-chan ServerMessage) {
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			c.App.Logger.Debug("Failed to write WebSocket message", zap.Error(err))
			return
		}
	}
}

// readClientMessages handles subscription requests until the connection closes.
func (c *Controller) readClientMessages(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, subs *clientSubscriptions, send chan<- ServerMessage) {
	const readTimeout = 60 * time.Second

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		c.App.Logger.Error("Failed to set read deadline", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	reply := func(msg ServerMessage) {
		select {
		case send <- msg:
		case <-ctx.Done():
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}

		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.App.Logger.Warn("WebSocket read error", zap.Error(err))
			}
			cancel()
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			c.App.Logger.Error("Failed to reset read deadline", zap.Error(err))
			return
		}

		switch msg.Action {
		case "subscribe":
			if msg.SessionID == "" {
				reply(ServerMessage{Type: "error", Payload: map[string]string{"message": "sessionId is required"}})
				continue
			}
			subs.subscribe(msg.SessionID)
			reply(ServerMessage{Type: "subscribed", Payload: map[string]string{"sessionId": msg.SessionID}})

		case "unsubscribe":
			if msg.SessionID == "" {
				reply(ServerMessage{Type: "error", Payload: map[string]string{"message": "sessionId is required"}})
				continue
			}
			subs.unsubscribe(msg.SessionID)
			reply(ServerMessage{Type: "unsubscribed", Payload: map[string]string{"sessionId": msg.SessionID}})

		default:
			reply(ServerMessage{Type: "error", Payload: map[string]string{"message": "unknown action: " + msg.Action}})
		}
	}
}
