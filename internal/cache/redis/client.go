package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/maxicoach/backend/pkg/logger"
)

const (
	audioPrefix   = "audio:"
	sessionPrefix = "session:"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetAudio caches synthesized PCM under key.
func (c *Client) SetAudio(ctx context.Context, key string, pcm []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, audioPrefix+key, pcm, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set audio cache: %w", err)
	}

	logger.Debug("Audio cached", zap.String("key", key), zap.Int("bytes", len(pcm)), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetAudio(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, audioPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get audio cache: %w", err)
	}

	logger.Debug("Audio cache hit", zap.String("key", key))
	return data, true, nil
}

// SetSession stores v as JSON and refreshes its TTL.
func (c *Client) SetSession(ctx context.Context, id string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := c.client.Set(ctx, sessionPrefix+id, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

func (c *Client) GetSession(ctx context.Context, id string, v any) (bool, error) {
	data, err := c.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return true, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateAudio drops every cached clip, e.g. after the knowledge base or
// voice mapping changed.
func (c *Client) InvalidateAudio(ctx context.Context) (int, error) {
	deleted := 0
	iter := c.client.Scan(ctx, 0, audioPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		deleted++
	}

	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Audio cache invalidated", zap.Int("deleted", deleted))
	return deleted, nil
}
