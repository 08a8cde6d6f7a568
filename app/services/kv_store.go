package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/tariff-storefront/utils"
	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned when a key is missing or expired
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the small key-value surface used for wizard state, admin sessions and cached directories
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}

// GetJSON loads and decodes a JSON value
func GetJSON[T any](ctx context.Context, store KVStore, key string) (*T, error) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &out, nil
}

// SetJSON encodes and stores a JSON value
func SetJSON(ctx context.Context, store KVStore, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return store.Set(ctx, key, raw, ttl)
}

// RedisKVStore wraps the go-redis client with a key prefix
type RedisKVStore struct {
	client *redis.Client
	prefix string
}

func NewRedisKVStore(client *redis.Client, prefix string) *RedisKVStore {
	return &RedisKVStore{client: client, prefix: prefix}
}

func (r *RedisKVStore) key(k string) string { return r.prefix + k }

func (r *RedisKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisKVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}
	return r.client.Del(ctx, prefixed...).Err()
}

func (r *RedisKVStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	return n > 0, err
}

func (r *RedisKVStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryKVStore is the in-process store used when redis is disabled
type MemoryKVStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   utils.Clock
}

func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{items: make(map[string]memoryItem), now: utils.UTCNow}
}

// NewMemoryKVStoreWithClock is NewMemoryKVStore with an injected clock
func NewMemoryKVStoreWithClock(now utils.Clock) *MemoryKVStore {
	s := NewMemoryKVStore()
	s.now = now
	return s
}

func (m *MemoryKVStore) live(item memoryItem) bool {
	return item.expiresAt.IsZero() || m.now().Before(item.expiresAt)
}

func (m *MemoryKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || !m.live(item) {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), item.value...), nil
}

func (m *MemoryKVStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryKVStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.items, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryKVStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *MemoryKVStore) Ping(context.Context) error { return nil }

// Sweep drops expired entries and returns how many were removed
func (m *MemoryKVStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, item := range m.items {
		if !m.live(item) {
			delete(m.items, k)
			removed++
		}
	}
	return removed
}

// Keys returns the live keys with the given prefix
func (m *MemoryKVStore) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k, item := range m.items {
		if strings.HasPrefix(k, prefix) && m.live(item) {
			keys = append(keys, k)
		}
	}
	return keys
}
