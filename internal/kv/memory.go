package kv

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is a process-local Store backed by a map. It is the default
// backend and the substrate used by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Set creates or overwrites the entry for key.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mu.Lock()
	s.data[key] = buf
	s.mu.Unlock()
	return nil
}

// Get returns the value for key or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	value, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, nil
}

// GetByPrefix returns every stored pair whose key begins with prefix.
func (s *MemoryStore) GetByPrefix(_ context.Context, prefix string) ([]Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := make([]Pair, 0)
	for key, value := range s.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		buf := make([]byte, len(value))
		copy(buf, value)
		pairs = append(pairs, Pair{Key: key, Value: buf})
	}
	return pairs, nil
}

// Delete removes the entry for key if present.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
