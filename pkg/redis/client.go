package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/utils"
)

// DefaultHistoryLen caps the per-session event history stream.
const DefaultHistoryLen = 100

// Client wraps the Redis client for dashboard event fan-out (Pub/Sub) and history (Streams).
type Client struct {
	client     *redis.Client
	logger     *zap.Logger
	historyLen int64
}

// NewClient creates a new Redis client using environment variables for configuration.
// Environment variables:
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
//   - REDIS_HISTORY_LEN: Events kept per session (default: 100, 0 = unlimited)
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	password := utils.Env("REDIS_PASSWORD", "")
	db := utils.EnvInt("REDIS_DB", 0)
	historyLen := utils.EnvInt64("REDIS_HISTORY_LEN", DefaultHistoryLen)

	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", addr),
		zap.Int("db", db),
		zap.Int64("historyLen", historyLen))

	return NewFromClient(rdb, historyLen, logger), nil
}

// NewFromClient wraps an already configured go-redis client.
func NewFromClient(rdb *redis.Client, historyLen int64, logger *zap.Logger) *Client {
	return &Client{client: rdb, logger: logger, historyLen: historyLen}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Publish publishes a message to a Redis Pub/Sub channel.
// This is best-effort: errors are logged, not returned.
func (c *Client) Publish(ctx context.Context, channel string, message any) {
	if err := c.client.Publish(ctx, channel, message).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// PSubscribe subscribes to one or more Redis Pub/Sub channel patterns.
// The caller is responsible for closing the returned PubSub.
func (c *Client) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	c.logger.Debug("Subscribing to Redis patterns", zap.Strings("patterns", patterns))
	return c.client.PSubscribe(ctx, patterns...)
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// AppendHistory records an event payload on the session's history stream.
// Best-effort like Publish; returns the entry ID or "" on failure.
func (c *Client) AppendHistory(ctx context.Context, sessionID, event string, payload []byte) string {
	args := &redis.XAddArgs{
		Stream: HistoryStream(sessionID),
		Values: map[string]any{"event": event, "payload": payload},
	}
	if c.historyLen > 0 {
		args.MaxLen = c.historyLen
		args.Approx = true
	}

	id, err := c.client.XAdd(ctx, args).Result()
	if err != nil {
		c.logger.Warn("Failed to append session history",
			zap.String("session", sessionID),
			zap.Error(err))
		return ""
	}
	return id
}

// HistoryEntry is one recorded session event.
type HistoryEntry struct {
	ID      string          `json:"id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// History returns up to count of the session's most recent events, oldest first.
func (c *Client) History(ctx context.Context, sessionID string, count int64) ([]HistoryEntry, error) {
	msgs, err := c.client.XRevRangeN(ctx, HistoryStream(sessionID), "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("read history for session %s: %w", sessionID, err)
	}

	out := make([]HistoryEntry, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		event, _ := msg.Values["event"].(string)
		payload, _ := msg.Values["payload"].(string)
		if !json.Valid([]byte(payload)) {
			continue
		}
		out = append(out, HistoryEntry{ID: msg.ID, Event: event, Payload: json.RawMessage(payload)})
	}
	return out, nil
}
