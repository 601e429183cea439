// Package store provides History implementations backed by external
// databases.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glowstack/dermassist/conversation"
)

// RedisHistory persists conversation turns in Redis lists, one list per
// session. The TTL is refreshed on every append so idle sessions expire the
// way inactive conversations do.
type RedisHistory struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis configuration for conversation history.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisHistory creates a Redis-backed history store.
func NewRedisHistory(config *RedisConfig) *RedisHistory {
	if config == nil {
		config = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "dermassist:history:",
			TTL:    6 * time.Hour,
		}
	}
	if config.Prefix == "" {
		config.Prefix = "dermassist:history:"
	}
	if config.TTL <= 0 {
		config.TTL = 6 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisHistory{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

// Read returns the session's ordered turns.
func (s *RedisHistory) Read(ctx context.Context, sessionID string) ([]conversation.Turn, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", sessionID, err)
	}
	turns := make([]conversation.Turn, 0, len(raw))
	for _, item := range raw {
		var turn conversation.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode turn for %s: %w", sessionID, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append pushes a turn onto the session list and refreshes its TTL. RPUSH is
// atomic per key, which gives the per-session ordering guarantee.
func (s *RedisHistory) Append(ctx context.Context, sessionID string, turn conversation.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}
	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history %s: %w", sessionID, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisHistory) Close() error {
	return s.client.Close()
}

func (s *RedisHistory) key(sessionID string) string {
	return s.prefix + sessionID
}
