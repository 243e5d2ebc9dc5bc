// Package cmap provides a concurrent-safe sharded map keyed by string.
//
// Sharding keeps lock contention low: operations on keys that land in
// different shards never block each other, and structural changes hold a
// single shard lock only for the instant of the change.
package cmap

import (
	"sync"

	"github.com/zeebo/xxh3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe sharded map with string keys.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint64
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates a sharded map with the default shard count.
func New[V any]() *Map[V] {
	return NewWithShards[V](DefaultShardCount)
}

// NewWithShards creates a sharded map with the given shard count, which
// must be a power of 2; invalid counts fall back to the default.
func NewWithShards[V any](shardCount int) *Map[V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}

	m := &Map[V]{
		shards: make([]*shard[V], shardCount),
		mask:   uint64(shardCount - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

// getShard routes a key to its shard. xxh3 is fast and well distributed;
// shard routing is not an adversarial surface, so no seed is needed.
func (m *Map[V]) getShard(key string) *shard[V] {
	return m.shards[xxh3.HashString(key)&m.mask]
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.getShard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores a key-value pair, replacing any existing value.
func (m *Map[V]) Set(key string, value V) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// SetIfAbsent stores the value only if the key is not present.
// Returns true if the value was stored.
func (m *Map[V]) SetIfAbsent(key string, value V) bool {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = value
	return true
}

// Pop removes a key and returns the value it held.
func (m *Map[V]) Pop(key string) (V, bool) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// Delete removes a key.
func (m *Map[V]) Delete(key string) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Has reports whether a key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Count returns the total number of items across all shards.
func (m *Map[V]) Count() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Range iterates over all key-value pairs. The callback returns false to
// stop. Locks are taken shard by shard, so the view is not a consistent
// point-in-time snapshot.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns all keys in shard order, unsorted.
func (m *Map[V]) Keys() []string {
	keys := make([]string, 0, m.Count())
	m.Range(func(key string, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Clear removes all items.
func (m *Map[V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[string]V)
		s.mu.Unlock()
	}
}

// ShardCount returns the number of shards.
func (m *Map[V]) ShardCount() int {
	return len(m.shards)
}
