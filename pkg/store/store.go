// Package store implements the node's local cache of computed and fetched values.
package store

import (
	"fmt"
	"sort"

	"github.com/srand/jolt/node/pkg/utils"
)

// Store is a key to value mapping shared by all executions on a node.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) (any, error)
	Set(key string, value any)
	Delete(key string) error
	Has(key string) bool
	Keys() []string
	Len() int
}

// Lookup is the read-only view of a Store used by task evaluators.
type Lookup interface {
	Get(key string) (any, error)
	Has(key string) bool
}

type memoryStore struct {
	mu   utils.RWMutex
	data map[string]any
}

// NewMemoryStore returns an empty in-memory store protected by a single
// mapping-wide lock.
func NewMemoryStore() Store {
	return &memoryStore{
		mu:   utils.NewRWMutex(),
		data: map[string]any{},
	}
}

// NewMemoryStoreFrom returns an in-memory store holding a copy of data.
func NewMemoryStoreFrom(data map[string]any) Store {
	s := NewMemoryStore().(*memoryStore)
	for k, v := range data {
		s.data[k] = v
	}
	return s
}

func (s *memoryStore) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %q", utils.ErrNotFound, key)
	}
	return value, nil
}

func (s *memoryStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *memoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return fmt.Errorf("%w: key %q", utils.ErrNotFound, key)
	}
	delete(s.data, key)
	return nil
}

func (s *memoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Keys returns the present keys in sorted order.
func (s *memoryStore) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
