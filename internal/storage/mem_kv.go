package storage

import (
	"context"
	"sync"
)

// MemKV is an in-memory implementation of KV for tests and ephemeral runs.
// It counts Set calls per key so tests can assert write coalescing, and allows
// injecting errors to exercise failure paths.
type MemKV struct {
	mu        sync.RWMutex
	data      map[string]string
	setCounts map[string]int

	// FailSets, when non-nil, is returned from every Set call.
	FailSets error
}

// NewMemKV creates an empty in-memory store.
func NewMemKV() *MemKV {
	return &MemKV{
		data:      make(map[string]string),
		setCounts: make(map[string]int),
	}
}

// Get retrieves the value stored under key.
func (m *MemKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound{Key: key}
	}
	return v, nil
}

// Set stores value under key.
func (m *MemKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCounts[key]++
	if m.FailSets != nil {
		return m.FailSets
	}
	m.data[key] = value
	return nil
}

// Delete removes a key.
func (m *MemKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Close is a no-op.
func (m *MemKV) Close() error { return nil }

// SetCount reports how many Set calls were attempted for key.
func (m *MemKV) SetCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.setCounts[key]
}

// Seed stores a value without counting it as a write (test setup helper).
func (m *MemKV) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}
