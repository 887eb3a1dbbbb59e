package prefs

import (
	"errors"
	"sort"
	"sync"
)

// ErrWriteFailed is returned by MemStore.Set when write failure is injected.
var ErrWriteFailed = errors.New("prefs: write failed")

// MemStore is an in-memory Store for tests that never writes to disk.
type MemStore struct {
	mu        sync.Mutex
	values    map[string]any
	writes    []string
	failWrite bool
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]any)}
}

func (m *MemStore) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemStore) Set(key string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return ErrWriteFailed
	}
	m.values[key] = v
	m.writes = append(m.writes, key)
	return nil
}

func (m *MemStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return ErrWriteFailed
	}
	delete(m.values, key)
	return nil
}

func (m *MemStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetFailWrite configures the store to fail all writes.
func (m *MemStore) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// Writes returns the keys written so far, in order.
func (m *MemStore) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.writes))
	copy(out, m.writes)
	return out
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

// Flush is a no-op for in-memory stores.
func (m *MemStore) Flush() error { return nil }

// Ensure MemStore implements Store
var _ Store = (*MemStore)(nil)
