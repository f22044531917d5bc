package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/maxicoach/backend/internal/chat"
)

// MemoryStore keeps sessions in process. Values are stored as JSON so a
// caller mutating a returned session never changes the stored copy.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(ttl, ttl/2+time.Minute),
		ttl:   ttl,
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*chat.Session, error) {
	raw, ok := m.cache.Get(id)
	if !ok {
		return nil, chat.ErrSessionNotFound
	}
	var s chat.Session
	if err := json.Unmarshal(raw.([]byte), &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *chat.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	m.cache.Set(s.ID, raw, m.ttl)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}
