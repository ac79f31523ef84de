package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-proxy/internal/cache"
	"github.com/i474232898/weather-proxy/internal/common"
	"github.com/i474232898/weather-proxy/internal/store"
)

// Result is a served payload plus where it came from.
type Result struct {
	Payload Payload
	Key     cache.Key
	Hit     bool
}

// Service answers weather queries from the approximate cache and falls back to
// the upstream client on a miss.
type Service struct {
	cache  *store.Memory[Payload]
	client Client
	width  time.Duration
}

// NewService creates a new Service. The bucket width comes from the cache policy.
func NewService(cache *store.Memory[Payload], client Client) *Service {
	return &Service{
		cache:  cache,
		client: client,
		width:  cache.Policy().BucketWidth,
	}
}

// Key builds the cache key for a current-conditions query. The city is
// normalized so every caller lands on the same entry.
func (s *Service) Key(city string, ts uint64) cache.Key {
	return cache.NewKey(common.NormalizeCity(city), cache.APICurrent, cache.UnitsMetric, cache.LangEn, ts, s.width)
}

// Current returns the weather for city at request time ts. An approximate
// cache hit is returned as is; on a miss the upstream result is stored under
// the exact key. No lock is held while the upstream call is in flight, so
// concurrent misses for one key may all fetch; the last write wins.
func (s *Service) Current(ctx context.Context, city string, ts uint64) (Result, error) {
	city = common.NormalizeCity(city)
	key := s.Key(city, ts)
	log := logrus.WithFields(logrus.Fields{"city": city, "bucket": key.Bucket})

	if p, ok := s.cache.GetApprox(key); ok {
		log.Debug("cache hit")
		return Result{Payload: p, Key: key, Hit: true}, nil
	}

	log.Debugf("cache miss, fetching from %s", s.client.Name())
	n, err := s.client.FetchCurrent(ctx, city)
	if err != nil {
		log.WithError(err).Warn("upstream fetch failed")
		return Result{}, err
	}

	log.WithFields(logrus.Fields{
		"request_ts":  ts,
		"upstream_ts": n.Timestamp,
	}).Debug("upstream fetch ok")

	s.cache.Set(key, n.Payload)
	return Result{Payload: n.Payload, Key: key}, nil
}

// Prefetch warms the cache for city at now. It skips the upstream call when
// an exact entry for the current bucket exists and is not stale.
// It reports whether a fetch happened.
func (s *Service) Prefetch(ctx context.Context, city string, now time.Time) (bool, error) {
	city = common.NormalizeCity(city)
	ts := uint64(now.Unix())
	key := s.Key(city, ts)

	if _, ok := s.cache.Get(key); ok && !s.cache.ShouldRefresh(key, ts) {
		return false, nil
	}

	n, err := s.client.FetchCurrent(ctx, city)
	if err != nil {
		return false, fmt.Errorf("prefetch %s: %w", city, err)
	}
	s.cache.Set(key, n.Payload)
	return true, nil
}

// Evict removes the exact entry for city at ts and returns its key.
func (s *Service) Evict(city string, ts uint64) cache.Key {
	key := s.Key(city, ts)
	s.cache.Del(key)
	return key
}

// Entries returns the keys currently cached.
func (s *Service) Entries() []cache.Key {
	return s.cache.Keys()
}
