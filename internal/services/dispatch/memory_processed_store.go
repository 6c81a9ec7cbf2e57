package dispatch

import (
	"context"
	"sync"
	"time"
)

// MemoryProcessedStore реализует ProcessedStore на map. Переживает только ребаланс,
// но не рестарт процесса; для этого есть rediscache.ProcessedStore.
type MemoryProcessedStore struct {
	mu     sync.Mutex
	events map[string]time.Time // messageID -> expiresAt
	now    func() time.Time
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{
		events: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *MemoryProcessedStore) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked()
	s.events[messageID] = s.now().Add(ttl)
	return nil
}

func (s *MemoryProcessedStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.events[messageID]
	if !ok {
		return false, nil
	}
	if s.now().After(expiresAt) {
		delete(s.events, messageID)
		return false, nil
	}
	return true, nil
}

// cleanupExpiredLocked вызывается под s.mu.
func (s *MemoryProcessedStore) cleanupExpiredLocked() {
	now := s.now()
	for id, expiresAt := range s.events {
		if now.After(expiresAt) {
			delete(s.events, id)
		}
	}
}
