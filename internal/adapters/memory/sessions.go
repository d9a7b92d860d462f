package memory

import (
	"context"
	"sync"
	"time"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/domain"
)

type entry struct {
	key     string
	expires time.Time
}

// SessionStore is the in-process DiscoveryStore. Entries expire lazily on read.
type SessionStore struct {
	mu  sync.Mutex
	m   map[string]entry
	ttl time.Duration
	now func() time.Time
}

var _ domain.DiscoveryStore = (*SessionStore)(nil)

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{m: map[string]entry{}, ttl: ttl, now: time.Now}
}

func (s *SessionStore) LastDiscovery(_ context.Context, sessionID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[sessionID]
	if !ok {
		observability.ObserveStore("memory", "miss")
		return "", false, nil
	}
	if s.ttl > 0 && !s.now().Before(e.expires) {
		delete(s.m, sessionID)
		observability.ObserveStore("memory", "expired")
		return "", false, nil
	}
	observability.ObserveStore("memory", "hit")
	return e.key, true, nil
}

func (s *SessionStore) RecordDiscovery(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sessionID] = entry{key: key, expires: s.now().Add(s.ttl)}
	observability.ObserveStore("memory", "set")
	return nil
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
