package store

import (
	"context"
	"sort"
	"sync"

	"github.com/IGLOU-EU/go-wildcard"
)

// MemoryStore keeps zone records in process memory. It backs local
// development (seeded from a zones directory) and tests.
type MemoryStore struct {
	items map[string][]byte
	mu    sync.RWMutex
}

var _ ReadWriter = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store holding a copy of seed
func NewMemoryStore(seed map[string][]byte) *MemoryStore {
	ms := &MemoryStore{
		items: make(map[string][]byte, len(seed)),
	}
	for key, value := range seed {
		ms.items[key] = append([]byte(nil), value...)
	}
	return ms
}

// Get retrieves a record from memory
func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "get", Backend: "memory", Key: key, Err: err}
	}

	ms.mu.RLock()
	value, exists := ms.items[key]
	ms.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	return value, nil
}

// Put stores a record in memory
func (ms *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	ms.mu.Lock()
	ms.items[key] = append([]byte(nil), value...)
	ms.mu.Unlock()

	return nil
}

// Delete removes a record from memory
func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	delete(ms.items, key)
	ms.mu.Unlock()

	return nil
}

// Keys returns the sorted keys matching pattern
func (ms *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	keys := make([]string, 0, len(ms.items))
	for key := range ms.items {
		if wildcard.MatchSimple(pattern, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

// Len returns the number of stored records
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.items)
}

// Ping always succeeds for the memory store
func (ms *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the memory store
func (ms *MemoryStore) Close() error {
	return nil
}
