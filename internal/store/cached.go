package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// CachedStore keeps recent lookups of a backing store in memory for a fixed
// TTL. Both hits and misses are cached; backend errors are not.
type CachedStore struct {
	backing Store
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	items  map[string]cachedItem
	mu     sync.RWMutex
	stopCh chan struct{}
	once   sync.Once
}

type cachedItem struct {
	value      []byte
	missing    bool
	expiration time.Time
}

// CacheConfig holds cache decorator configuration
type CacheConfig struct {
	// How long a lookup result is reused
	TTL time.Duration

	// Interval between sweeps of expired entries
	CleanupInterval time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultCacheConfig returns a default cache configuration
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		TTL:             30 * time.Second,
		CleanupInterval: time.Minute,
		Logger:          nil,
	}
}

// NewCachedStore wraps backing with a TTL cache
func NewCachedStore(backing Store, config *CacheConfig) *CachedStore {
	if config == nil {
		config = DefaultCacheConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cs := &CachedStore{
		backing: backing,
		ttl:     config.TTL,
		logger:  logger,
		now:     time.Now,
		items:   make(map[string]cachedItem),
		stopCh:  make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go cs.cleanupExpired(config.CleanupInterval)
	}

	logger.Info("zone cache enabled", "ttl", config.TTL.String())

	return cs
}

// Get returns the cached result for key, consulting the backing store when
// the entry is absent or expired
func (cs *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	cs.mu.RLock()
	item, exists := cs.items[key]
	cs.mu.RUnlock()

	if exists && cs.now().Before(item.expiration) {
		if item.missing {
			return nil, ErrNotFound
		}
		return item.value, nil
	}

	value, err := cs.backing.Get(ctx, key)
	switch {
	case err == nil:
		cs.set(key, cachedItem{value: value})
	case errors.Is(err, ErrNotFound):
		cs.set(key, cachedItem{missing: true})
	default:
		cs.logger.Warn("backing store lookup failed, result not cached", "error", err, "key", key)
	}

	return value, err
}

// Invalidate drops any cached result for key
func (cs *CachedStore) Invalidate(key string) {
	cs.mu.Lock()
	delete(cs.items, key)
	cs.mu.Unlock()
}

// Ping checks the backing store
func (cs *CachedStore) Ping(ctx context.Context) error {
	return cs.backing.Ping(ctx)
}

// Close stops the cleanup loop. The backing store is left open; its owner
// closes it.
func (cs *CachedStore) Close() error {
	cs.once.Do(func() { close(cs.stopCh) })
	return nil
}

func (cs *CachedStore) set(key string, item cachedItem) {
	item.expiration = cs.now().Add(cs.ttl)
	cs.mu.Lock()
	cs.items[key] = item
	cs.mu.Unlock()
}

// cleanupExpired periodically removes expired entries
func (cs *CachedStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := cs.now()
			cs.mu.Lock()
			for key, item := range cs.items {
				if now.After(item.expiration) {
					delete(cs.items, key)
				}
			}
			cs.mu.Unlock()
		case <-cs.stopCh:
			return
		}
	}
}
