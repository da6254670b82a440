package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/songzhibin97/adminconsole/pkg/store"
)

// MemoryStore implements the store.Store interface using in-memory storage.
// Contents do not survive the process.
type MemoryStore struct {
	data      map[string][]byte
	mu        sync.RWMutex
	keyPrefix string
	closed    bool
}

// New creates a new in-memory store instance
func New(config *store.Config) (*MemoryStore, error) {
	if config == nil {
		config = store.DefaultConfig()
	}

	return &MemoryStore{
		data:      make(map[string][]byte),
		keyPrefix: config.KeyPrefix,
	}, nil
}

// getKey returns the full key with prefix
func (ms *MemoryStore) getKey(key string) string {
	return store.PrefixedKey(ms.keyPrefix, ":", key)
}

// Get retrieves a value by key
func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, store.ErrStoreClosed
	}

	value, ok := ms.data[ms.getKey(key)]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, store.ErrKeyNotFound)
	}

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Put stores a value by key
func (ms *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	return ms.PutAll(ctx, map[string][]byte{key: value})
}

// PutAll stores every entry under a single lock
func (ms *MemoryStore) PutAll(ctx context.Context, entries map[string][]byte) error {
	for key := range entries {
		if key == "" {
			return store.ErrInvalidKey
		}
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return store.ErrStoreClosed
	}

	for key, value := range entries {
		stored := make([]byte, len(value))
		copy(stored, value)
		ms.data[ms.getKey(key)] = stored
	}
	return nil
}

// Delete removes keys under a single lock
func (ms *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return store.ErrStoreClosed
	}

	for _, key := range keys {
		delete(ms.data, ms.getKey(key))
	}
	return nil
}

// Close releases the stored data
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.closed = true
	ms.data = make(map[string][]byte)
	return nil
}

// Health returns the health status of the store
func (ms *MemoryStore) Health(ctx context.Context) store.HealthStatus {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	status := store.StatusHealthy
	message := "Memory store is operational"
	if ms.closed {
		status = store.StatusUnhealthy
		message = "Memory store is closed"
	}

	return store.HealthStatus{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"type":       store.TypeMemory,
			"keys_count": len(ms.data),
		},
	}
}
