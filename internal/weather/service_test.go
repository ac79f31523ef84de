package weather

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-proxy/internal/cache"
	"github.com/i474232898/weather-proxy/internal/store"
)

type fakeClient struct {
	mu     sync.Mutex
	calls  map[string]int
	result Normalized
	err    error
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) FetchCurrent(_ context.Context, city string) (Normalized, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[city]++
	return f.result, f.err
}

func (f *fakeClient) count(city string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[city]
}

func newTestService(client Client, width time.Duration) (*Service, *store.Memory[Payload]) {
	mem := store.NewMemory[Payload](cache.DefaultPolicy(width))
	return NewService(mem, client), mem
}

func TestCurrentMissThenApproxHit(t *testing.T) {
	want := Payload{Temp: 3.5, TempMax: 5, TempMin: -1, Humidity: 80, Pressure: 1012, WindSpeed: 4.2}
	client := &fakeClient{result: Normalized{Payload: want, Timestamp: 105}}
	svc, mem := newTestService(client, time.Hour)

	res, err := svc.Current(context.Background(), "oslo", 100)
	require.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Equal(t, want, res.Payload)
	assert.Equal(t, 1, mem.Len())

	// Next bucket, still inside the window.
	res, err = svc.Current(context.Background(), "oslo", 100+3600)
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, want, res.Payload)
	assert.Equal(t, 1, client.count("oslo"))
	assert.Equal(t, 1, mem.Len(), "approximate hits are not stored")
}

func TestCurrentOutsideWindowFetchesAgain(t *testing.T) {
	client := &fakeClient{result: Normalized{Payload: Payload{Temp: 1}}}
	svc, mem := newTestService(client, time.Hour)

	_, err := svc.Current(context.Background(), "oslo", 0)
	require.NoError(t, err)
	_, err = svc.Current(context.Background(), "oslo", 3*3600)
	require.NoError(t, err)

	assert.Equal(t, 2, client.count("oslo"))
	assert.Equal(t, 2, mem.Len())
}

func TestCurrentUpstreamErrorIsNotCached(t *testing.T) {
	upstreamErr := &FetchError{Kind: FetchStatus, StatusCode: 401, Err: errors.New("unauthorized")}
	client := &fakeClient{err: upstreamErr}
	svc, mem := newTestService(client, time.Hour)

	_, err := svc.Current(context.Background(), "oslo", 0)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, FetchStatus, kind)
	assert.Equal(t, 0, mem.Len())

	_, err = svc.Current(context.Background(), "oslo", 0)
	require.Error(t, err)
	assert.Equal(t, 2, client.count("oslo"), "failures are not cached")
}

func TestPrefetchSkipsFreshEntry(t *testing.T) {
	client := &fakeClient{result: Normalized{Payload: Payload{Temp: 1}}}
	svc, mem := newTestService(client, 2*time.Hour)
	now := time.Unix(1700000000, 0)

	fetched, err := svc.Prefetch(context.Background(), "oslo", now)
	require.NoError(t, err)
	assert.True(t, fetched)

	fetched, err = svc.Prefetch(context.Background(), "oslo", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, fetched)

	assert.Equal(t, 1, client.count("oslo"))
	assert.Equal(t, 1, mem.Len())
}

func TestPrefetchWrapsError(t *testing.T) {
	client := &fakeClient{err: &FetchError{Kind: FetchNetwork, Err: context.DeadlineExceeded}}
	svc, _ := newTestService(client, time.Hour)

	_, err := svc.Prefetch(context.Background(), "oslo", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "prefetch oslo")
}

func TestEvict(t *testing.T) {
	client := &fakeClient{result: Normalized{Payload: Payload{Temp: 1}}}
	svc, mem := newTestService(client, time.Hour)

	_, err := svc.Current(context.Background(), "oslo", 4000)
	require.NoError(t, err)

	key := svc.Evict("oslo", 3700)
	assert.Equal(t, uint64(3600), key.Bucket)
	assert.Equal(t, 0, mem.Len())
	assert.Empty(t, svc.Entries())
}

func TestFetchErrorMessage(t *testing.T) {
	err := &FetchError{Kind: FetchStatus, StatusCode: 429, Err: errors.New("too many requests")}
	assert.Equal(t, "upstream status error (429): too many requests", err.Error())

	err = &FetchError{Kind: FetchMalformed, Err: errors.New("missing days")}
	assert.Equal(t, "upstream malformed error: missing days", err.Error())

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestCityIsNormalizedAcrossEntryPoints(t *testing.T) {
	client := &fakeClient{result: Normalized{Payload: Payload{Temp: 7}}}
	svc, mem := newTestService(client, time.Hour)

	fetched, err := svc.Prefetch(context.Background(), "New  York", time.Unix(4000, 0))
	require.NoError(t, err)
	require.True(t, fetched)

	res, err := svc.Current(context.Background(), " NEW YORK ", 4000)
	require.NoError(t, err)
	assert.True(t, res.Hit)
	assert.Equal(t, "new york", res.Key.City)
	assert.Equal(t, 1, client.count("new york"))
	assert.Equal(t, 1, mem.Len())

	svc.Evict("New York", 4000)
	assert.Equal(t, 0, mem.Len())
}
