package cache

import "time"

// Policy decides when a cached bucket is too old to be served or should be
// refreshed. Window is independent of BucketWidth so it can be tuned alone.
type Policy struct {
	BucketWidth time.Duration
	Window      time.Duration
}

// DefaultPolicy uses a freshness window of two bucket widths.
func DefaultPolicy(width time.Duration) Policy {
	return Policy{
		BucketWidth: width,
		Window:      2 * width,
	}
}

// WindowSeconds returns the freshness window in whole seconds.
func (p Policy) WindowSeconds() uint64 {
	if p.Window <= 0 {
		return 0
	}
	return uint64(p.Window / time.Second)
}

// IsStale reports whether a bucket has aged past the window at now.
// A bucket in the future of now is fresh.
func (p Policy) IsStale(bucket, now uint64) bool {
	return satSub(now, bucket) >= p.WindowSeconds()
}

// WithinWindow reports whether a stored bucket may answer a query bucket:
// it must be neither newer nor older than the query by a full window.
func (p Policy) WithinWindow(stored, query uint64) bool {
	w := p.WindowSeconds()
	return satSub(stored, query) < w && satSub(query, stored) < w
}

func satSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
