package store

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-proxy/internal/cache"
)

// Memory is the process-wide, concurrency-safe handle to the approximate cache.
// Reads share one RWMutex read lock, writes take it exclusively, and a lock is
// held only for the single operation being performed.
//
// A panic raised while the lock is held is recovered: reads report a miss and
// writes are dropped, so callers fall through to the upstream fetch.
type Memory[V any] struct {
	mu    sync.RWMutex
	cache *cache.Store[V]
}

// NewMemory creates an empty store judged by policy.
func NewMemory[V any](policy cache.Policy) *Memory[V] {
	return &Memory[V]{
		cache: cache.NewStore[V](policy),
	}
}

// Policy returns the refresh policy of the underlying store.
func (m *Memory[V]) Policy() cache.Policy {
	return m.cache.Policy()
}

// Get returns the value stored under exactly key.
func (m *Memory[V]) Get(key cache.Key) (v V, ok bool) {
	m.read("get", key, func(c *cache.Store[V]) {
		v, ok = c.Get(key)
	})
	return v, ok
}

// GetApprox returns the exact or nearest in-window entry for key.
func (m *Memory[V]) GetApprox(key cache.Key) (v V, ok bool) {
	if !m.read("get_approx", key, func(c *cache.Store[V]) {
		v, ok = c.GetApprox(key)
	}) {
		var zero V
		return zero, false
	}
	return v, ok
}

// ShouldRefresh reports whether an exact entry exists and is stale at now.
func (m *Memory[V]) ShouldRefresh(key cache.Key, now uint64) (stale bool) {
	m.read("should_refresh", key, func(c *cache.Store[V]) {
		stale = c.ShouldRefresh(key, now)
	})
	return stale
}

// Len returns the number of entries.
func (m *Memory[V]) Len() (n int) {
	m.read("len", cache.Key{}, func(c *cache.Store[V]) {
		n = c.Len()
	})
	return n
}

// Keys returns a sorted snapshot of the stored keys.
func (m *Memory[V]) Keys() (keys []cache.Key) {
	m.read("keys", cache.Key{}, func(c *cache.Store[V]) {
		keys = c.Keys()
	})
	return keys
}

// Set inserts or overwrites the value under key.
func (m *Memory[V]) Set(key cache.Key, value V) {
	m.write("set", key, func(c *cache.Store[V]) {
		c.Set(key, value)
	})
}

// Del removes the entry under key, if any.
func (m *Memory[V]) Del(key cache.Key) {
	m.write("del", key, func(c *cache.Store[V]) {
		c.Del(key)
	})
}

func (m *Memory[V]) read(op string, key cache.Key, fn func(*cache.Store[V])) (ok bool) {
	defer recoverAsMiss(op, key, &ok)

	m.mu.RLock()
	defer m.mu.RUnlock()

	fn(m.cache)
	return true
}

func (m *Memory[V]) write(op string, key cache.Key, fn func(*cache.Store[V])) (ok bool) {
	defer recoverAsMiss(op, key, &ok)

	m.mu.Lock()
	defer m.mu.Unlock()

	fn(m.cache)
	return true
}

// recoverAsMiss runs after the lock has been released by the inner defer.
func recoverAsMiss(op string, key cache.Key, ok *bool) {
	if r := recover(); r != nil {
		logrus.WithFields(logrus.Fields{
			"op":  op,
			"key": key.String(),
		}).Errorf("cache operation panicked, treating as miss: %v", r)
		*ok = false
	}
}
