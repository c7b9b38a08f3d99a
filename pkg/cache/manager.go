package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles caching operations with a Redis backend. A nil
// Manager, or one constructed without a Redis client, is a valid
// disabled cache: every Get misses and every Set is dropped.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewManager creates a cache manager. ttl is the lifetime of new
// entries; redisClient may be nil to disable caching.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	return &Manager{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Enabled reports whether the manager has a backing store.
func (m *Manager) Enabled() bool {
	return m != nil && m.redis != nil
}

// Get retrieves a cached page by key.
// Returns ErrCacheMiss if the key does not exist or the entry expired.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	if !m.Enabled() {
		return nil, ErrCacheMiss
	}

	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(key.Kind).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis TTL should have evicted this already; the explicit check
	// covers clock drift between writer and reader.
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.WithLabelValues(key.Kind).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(key.Kind).Inc()
	return &entry, nil
}

// Put stores a page body under key with the manager's TTL.
func (m *Manager) Put(ctx context.Context, key Key, body []byte) error {
	if !m.Enabled() {
		return nil
	}

	now := time.Now()
	entry := &Entry{
		Data:     body,
		Expires:  now.Add(m.ttl),
		CachedAt: now,
	}
	return m.Set(ctx, key, entry)
}

// Set stores a cache entry; the Redis TTL follows the entry's Expires
// field. Already-expired entries are not written.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if !m.Enabled() {
		return nil
	}
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if !m.Enabled() {
		return nil
	}

	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
