package cache

import "sort"

// Store maps keys to cached values with exact and approximate lookup.
// It performs no locking of its own and never evicts.
type Store[V any] struct {
	policy  Policy
	entries map[Key]V
}

// NewStore creates an empty Store judged by the given policy.
func NewStore[V any](policy Policy) *Store[V] {
	return &Store[V]{
		policy:  policy,
		entries: make(map[Key]V),
	}
}

// Policy returns the refresh policy the store was built with.
func (s *Store[V]) Policy() Policy {
	return s.policy
}

// ShouldRefresh reports whether an entry exists under key and has gone stale
// at now. It is advisory; GetApprox does not consult it.
func (s *Store[V]) ShouldRefresh(key Key, now uint64) bool {
	if _, ok := s.entries[key]; !ok {
		return false
	}
	return s.policy.IsStale(key.Bucket, now)
}

// Set inserts or overwrites the value stored under key.
func (s *Store[V]) Set(key Key, value V) {
	s.entries[key] = value
}

// Get returns the value stored under exactly key.
func (s *Store[V]) Get(key Key) (V, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// GetApprox returns the exact entry for query if present, otherwise the entry
// for the same city whose bucket is nearest to the query inside the policy
// window. Equal distances resolve to the newer bucket.
func (s *Store[V]) GetApprox(query Key) (V, bool) {
	if v, ok := s.entries[query]; ok {
		return v, true
	}

	var (
		best     V
		bestKey  Key
		bestDist uint64
		found    bool
	)
	for k, v := range s.entries {
		if k.City != query.City || !s.policy.WithinWindow(k.Bucket, query.Bucket) {
			continue
		}
		d := distance(k.Bucket, query.Bucket)
		if !found || d < bestDist || (d == bestDist && k.Bucket > bestKey.Bucket) {
			best, bestKey, bestDist, found = v, k, d, true
		}
	}
	return best, found
}

// Del removes the entry under key, if any.
func (s *Store[V]) Del(key Key) {
	delete(s.entries, key)
}

// Len returns the number of stored entries.
func (s *Store[V]) Len() int {
	return len(s.entries)
}

// Keys returns all stored keys ordered by city, then bucket.
func (s *Store[V]) Keys() []Key {
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].City != keys[j].City {
			return keys[i].City < keys[j].City
		}
		if keys[i].Bucket != keys[j].Bucket {
			return keys[i].Bucket < keys[j].Bucket
		}
		return keys[i].String() < keys[j].String()
	})
	return keys
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
