package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hourPolicy gives a window of 7200 seconds.
var hourPolicy = DefaultPolicy(time.Hour)

func key(city string, bucket uint64) Key {
	return Key{City: city, APIType: APICurrent, Units: UnitsMetric, Lang: LangEn, Bucket: bucket}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := NewStore[string](hourPolicy)
	k := key("moscow", 1000)

	s.Set(k, "a")
	v, ok := s.Get(k)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	s.Set(k, "b")
	v, ok = s.Get(k)
	require.True(t, ok)
	assert.Equal(t, "b", v, "set overwrites")
	assert.Equal(t, 1, s.Len())
}

func TestDel(t *testing.T) {
	s := NewStore[string](hourPolicy)
	k := key("moscow", 1000)

	s.Del(k)
	assert.Equal(t, 0, s.Len())

	s.Set(k, "a")
	s.Del(k)
	_, ok := s.Get(k)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestGetApproxEmptyStore(t *testing.T) {
	s := NewStore[string](hourPolicy)
	_, ok := s.GetApprox(key("moscow", 1000))
	assert.False(t, ok)
}

func TestGetApprox(t *testing.T) {
	s := NewStore[string](hourPolicy)
	s.Set(key("moscow", 1000), "moscow@1000")

	tests := []struct {
		name   string
		query  Key
		want   string
		wantOK bool
	}{
		{name: "exact", query: key("moscow", 1000), want: "moscow@1000", wantOK: true},
		{name: "within window", query: key("moscow", 1500), want: "moscow@1000", wantOK: true},
		{name: "stored newer within window", query: key("moscow", 0), want: "moscow@1000", wantOK: true},
		{name: "outside window", query: key("moscow", 9000), wantOK: false},
		{name: "window edge is exclusive", query: key("moscow", 8200), wantOK: false},
		{name: "just inside window edge", query: key("moscow", 8199), want: "moscow@1000", wantOK: true},
		{name: "city mismatch", query: key("spb", 1500), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.GetApprox(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGetApproxStoredFarInFuture(t *testing.T) {
	s := NewStore[string](hourPolicy)
	s.Set(key("moscow", 20000), "future")

	_, ok := s.GetApprox(key("moscow", 1000))
	assert.False(t, ok)
}

func TestGetApproxPrefersNearestBucket(t *testing.T) {
	s := NewStore[string](hourPolicy)
	s.Set(key("oslo", 0), "far")
	s.Set(key("oslo", 3600), "near")
	s.Set(key("oslo", 7200), "newer")
	s.Set(key("bergen", 4000), "other city")

	for i := 0; i < 20; i++ {
		got, ok := s.GetApprox(key("oslo", 4000))
		require.True(t, ok)
		assert.Equal(t, "near", got)
	}
}

func TestGetApproxTieGoesToNewer(t *testing.T) {
	s := NewStore[string](hourPolicy)
	s.Set(key("oslo", 1000), "older")
	s.Set(key("oslo", 3000), "newer")

	for i := 0; i < 20; i++ {
		got, ok := s.GetApprox(key("oslo", 2000))
		require.True(t, ok)
		assert.Equal(t, "newer", got)
	}
}

func TestGetApproxIgnoresNonCityFields(t *testing.T) {
	s := NewStore[string](hourPolicy)
	s.Set(Key{City: "oslo", Lang: LangRu, Bucket: 1000}, "ru")

	got, ok := s.GetApprox(Key{City: "oslo", Lang: LangEn, Bucket: 1200})
	require.True(t, ok)
	assert.Equal(t, "ru", got)
}

func TestShouldRefresh(t *testing.T) {
	s := NewStore[string](DefaultPolicy(2 * time.Hour))
	k := NewKey("moscow", APICurrent, UnitsMetric, LangEn, 1700000000, 2*time.Hour)

	assert.False(t, s.ShouldRefresh(k, k.Bucket+5*3600*24), "missing entry never needs refresh")

	s.Set(k, "x")
	assert.False(t, s.ShouldRefresh(k, 1700000000))
	assert.False(t, s.ShouldRefresh(k, k.Bucket+4*3600-1))
	assert.True(t, s.ShouldRefresh(k, k.Bucket+4*3600))
	assert.True(t, s.ShouldRefresh(k, k.Bucket+10*3600))
	assert.False(t, s.ShouldRefresh(k, k.Bucket-100), "clock behind the bucket is fresh")
}

func TestKeysSorted(t *testing.T) {
	s := NewStore[int](hourPolicy)
	s.Set(key("oslo", 7200), 1)
	s.Set(key("bergen", 0), 2)
	s.Set(key("oslo", 0), 3)

	assert.Equal(t, []Key{key("bergen", 0), key("oslo", 0), key("oslo", 7200)}, s.Keys())
}

func TestOsloScenario(t *testing.T) {
	s := NewStore[string](hourPolicy)

	_, ok := s.GetApprox(key("oslo", 100))
	require.False(t, ok)

	s.Set(key("oslo", 100), "payload@105")

	got, ok := s.GetApprox(key("oslo", 200))
	require.True(t, ok)
	assert.Equal(t, "payload@105", got)
}

func TestPolicy(t *testing.T) {
	p := Policy{BucketWidth: 2 * time.Hour, Window: 30 * time.Minute}
	assert.Equal(t, uint64(1800), p.WindowSeconds())
	assert.False(t, p.IsStale(0, 1799))
	assert.True(t, p.IsStale(0, 1800))
	assert.True(t, p.WithinWindow(0, 1799))
	assert.False(t, p.WithinWindow(1800, 0))

	assert.Equal(t, 4*time.Hour, DefaultPolicy(2*time.Hour).Window)
	assert.Equal(t, uint64(0), Policy{}.WindowSeconds())
	assert.True(t, Policy{}.IsStale(10, 10), "zero window is always stale")
}
