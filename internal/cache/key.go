// Package cache holds the approximate, time-bucketed cache of upstream weather
// results: the key model, the refresh policy and the store itself.
//
// The store in this package does no locking; see internal/store for the shared,
// concurrency-safe handle.
package cache

import (
	"fmt"
	"time"
)

// APIType identifies which upstream endpoint a cached result came from.
type APIType int

const (
	APICurrent APIType = iota
	APIForecast
)

func (a APIType) String() string {
	switch a {
	case APICurrent:
		return "current"
	case APIForecast:
		return "forecast"
	default:
		return "unknown"
	}
}

// Units is the unit group requested upstream.
type Units int

const (
	UnitsMetric Units = iota
)

func (u Units) String() string {
	if u == UnitsMetric {
		return "metric"
	}
	return "unknown"
}

// Lang is the response language requested upstream.
type Lang int

const (
	LangEn Lang = iota
	LangRu
)

func (l Lang) String() string {
	switch l {
	case LangEn:
		return "en"
	case LangRu:
		return "ru"
	default:
		return "unknown"
	}
}

// Key identifies one cacheable query. It is comparable and used directly as a
// map key, so equality is structural over all fields.
//
// City is treated as an opaque string; callers normalize it.
type Key struct {
	City    string
	APIType APIType
	Units   Units
	Lang    Lang
	// Bucket is the request time coarsened to a multiple of the bucket width,
	// in unix seconds.
	Bucket uint64
}

// NewKey builds a Key, coarsening rawTimestamp into its bucket.
func NewKey(city string, apiType APIType, units Units, lang Lang, rawTimestamp uint64, width time.Duration) Key {
	return Key{
		City:    city,
		APIType: apiType,
		Units:   units,
		Lang:    lang,
		Bucket:  BucketOf(rawTimestamp, width),
	}
}

// BucketOf truncates ts down to a multiple of width. Widths under one second
// leave ts untouched.
func BucketOf(ts uint64, width time.Duration) uint64 {
	w := uint64(width / time.Second)
	if width <= 0 || w == 0 {
		return ts
	}
	return ts / w * w
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%s-%s-%s-%d", k.City, k.APIType, k.Units, k.Lang, k.Bucket)
}
