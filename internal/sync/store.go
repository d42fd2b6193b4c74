// Package sync persists the queue snapshot to a single durable slot and
// propagates it to other consumers. It is the only code that talks to the
// outside world on behalf of the engine; the engine stays transport
// agnostic.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/Anandtech09/reception-prime-queue/internal/model"
)

// ErrNoSnapshot is returned by Load when the slot has never been written.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Store is the durable key-value slot holding the latest snapshot.
type Store interface {
	Save(ctx context.Context, snap *model.Snapshot) error
	Load(ctx context.Context) (*model.Snapshot, error)
}

// RedisStore keeps the snapshot under one fixed Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, key: key}, nil
}

// NewRedisStoreFromClient wraps an existing client, used by tests.
func NewRedisStoreFromClient(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Save(ctx context.Context, snap *model.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*model.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is the in-process fallback slot for redis-less deployments
// and tests. Snapshots are kept serialized so Load always returns a fresh
// copy with rehydrated timestamps, same as the Redis path.
type MemoryStore struct {
	cache *cache.Cache
	key   string
}

func NewMemoryStore(key string) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 0),
		key:   key,
	}
}

func (s *MemoryStore) Save(_ context.Context, snap *model.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	s.cache.Set(s.key, payload, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*model.Snapshot, error) {
	v, ok := s.cache.Get(s.key)
	if !ok {
		return nil, ErrNoSnapshot
	}
	var snap model.Snapshot
	if err := json.Unmarshal(v.([]byte), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
