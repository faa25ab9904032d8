// Package cache provides a small mutex-guarded keyed store. The CloudWatch
// Logs client uses it to build exactly one SDK client per region.
package cache

import "sync"

// Entry represents a cached item with metadata
type Entry[V any] struct {
	Value    V
	HitCount int
}

// Store is a keyed cache safe for concurrent use. Entries live until they
// are deleted.
type Store[V any] struct {
	mu      sync.Mutex
	entries map[string]*Entry[V]
}

// New creates an empty store.
func New[V any]() *Store[V] {
	return &Store[V]{entries: make(map[string]*Entry[V])}
}

// GetOrCreate returns the cached value for key, calling create at most once
// per missing key. A failed create leaves the key absent.
func (s *Store[V]) GetOrCreate(key string, create func() (V, error)) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		entry.HitCount++
		return entry.Value, nil
	}
	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	s.entries[key] = &Entry[V]{Value: v}
	return v, nil
}

// Delete removes a specific key from the cache
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Keys returns the keys of all entries
func (s *Store[V]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns cache statistics
func (s *Store[V]) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalHits := 0
	for _, entry := range s.entries {
		totalHits += entry.HitCount
	}
	return map[string]interface{}{
		"size":       len(s.entries),
		"total_hits": totalHits,
	}
}
