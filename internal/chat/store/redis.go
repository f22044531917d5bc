package store

import (
	"context"
	"time"

	"github.com/maxicoach/backend/internal/chat"
)

// SessionCache is the subset of the redis cache client used for sessions.
type SessionCache interface {
	SetSession(ctx context.Context, id string, v any, ttl time.Duration) error
	GetSession(ctx context.Context, id string, v any) (bool, error)
	DeleteSession(ctx context.Context, id string) error
}

// RedisStore shares sessions between API replicas. Every Save refreshes
// the TTL.
type RedisStore struct {
	cache SessionCache
	ttl   time.Duration
}

func NewRedisStore(cache SessionCache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: cache, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*chat.Session, error) {
	var s chat.Session
	found, err := r.cache.GetSession(ctx, id, &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, chat.ErrSessionNotFound
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *chat.Session) error {
	return r.cache.SetSession(ctx, s.ID, s, r.ttl)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.cache.DeleteSession(ctx, id)
}
