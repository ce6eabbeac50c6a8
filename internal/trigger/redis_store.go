// internal/trigger/redis_store.go
package trigger

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements ProcessedStore on Redis with per-id expiry, so the
// dedup set cannot grow without bound.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL sets how long a processed id is remembered.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a store backed by a new client.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient creates a store from an existing client.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "evoflow:processed:",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(instance, messageID string) string {
	return s.prefix + instance + ":" + messageID
}

func (s *RedisStore) Seen(ctx context.Context, instance, messageID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(instance, messageID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Mark(ctx context.Context, instance, messageID string) error {
	return s.client.Set(ctx, s.key(instance, messageID), "1", s.ttl).Err()
}

var _ ProcessedStore = (*RedisStore)(nil)
var _ ProcessedStore = (*MemoryStore)(nil)
