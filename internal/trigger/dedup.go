// internal/trigger/dedup.go
package trigger

import (
	"context"
	"sync"
)

// ProcessedStore tracks message ids the poller has already evaluated, per
// instance. Every observed id is marked, matched or not, so stale history
// is never reprocessed.
type ProcessedStore interface {
	Seen(ctx context.Context, instance, messageID string) (bool, error)
	Mark(ctx context.Context, instance, messageID string) error
}

// defaultMemoryCap bounds the in-memory store; oldest ids are evicted first.
const defaultMemoryCap = 10000

// MemoryStore is a capped in-process ProcessedStore. Dedup history is lost
// when the process restarts; use the Redis store when that matters.
type MemoryStore struct {
	mu    sync.Mutex
	cap   int
	ids   map[string]struct{}
	order []string
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCap
	}
	return &MemoryStore{
		cap: capacity,
		ids: make(map[string]struct{}),
	}
}

func (s *MemoryStore) key(instance, messageID string) string {
	return instance + ":" + messageID
}

func (s *MemoryStore) Seen(_ context.Context, instance, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[s.key(instance, messageID)]
	return ok, nil
}

func (s *MemoryStore) Mark(_ context.Context, instance, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(instance, messageID)
	if _, ok := s.ids[k]; ok {
		return nil
	}
	s.ids[k] = struct{}{}
	s.order = append(s.order, k)

	for len(s.order) > s.cap {
		delete(s.ids, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}
