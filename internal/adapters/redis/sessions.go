package redisad

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/domain"
)

const keyPrefix = "discovery:"

// SessionStore keeps the last discovery location key per session in Redis.
type SessionStore struct {
	c   *redis.Client
	ttl time.Duration
}

var _ domain.DiscoveryStore = (*SessionStore)(nil)

func New(addr, pass string, db int, ttl time.Duration) *SessionStore {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), ttl)
}

func NewWithClient(c *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{c: c, ttl: ttl}
}

func (s *SessionStore) LastDiscovery(ctx context.Context, sessionID string) (string, bool, error) {
	v, err := s.c.Get(ctx, keyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		observability.ObserveStore("redis", "miss")
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	observability.ObserveStore("redis", "hit")
	return v, true, nil
}

func (s *SessionStore) RecordDiscovery(ctx context.Context, sessionID, key string) error {
	observability.ObserveStore("redis", "set")
	return s.c.Set(ctx, keyPrefix+sessionID, key, s.ttl).Err()
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.c.Ping(ctx).Err()
}

func (s *SessionStore) Close() error {
	return s.c.Close()
}
