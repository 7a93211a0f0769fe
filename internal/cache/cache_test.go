package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingFetch(calls *int32, payload string) FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(payload), nil
	}
}

func TestGetOrFetchCachesPayload(t *testing.T) {
	c := New(NewMemoryStore(), time.Hour)
	var calls int32

	for i := 0; i < 3; i++ {
		got, err := c.GetOrFetch(context.Background(), "/person/1", countingFetch(&calls, "tom"))
		require.NoError(t, err)
		assert.Equal(t, "tom", string(got))
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	c := New(NewMemoryStore(), time.Hour)
	boom := errors.New("boom")
	var calls int32

	fail := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	}

	_, err := c.GetOrFetch(context.Background(), "k", fail)
	require.ErrorIs(t, err, boom)
	_, err = c.GetOrFetch(context.Background(), "k", fail)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetOrFetchSharesConcurrentMisses(t *testing.T) {
	c := New(NewMemoryStore(), time.Hour)
	var calls int32
	release := make(chan struct{})

	slow := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("v"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.GetOrFetch(context.Background(), "same", slow)
			assert.NoError(t, err)
			assert.Equal(t, "v", string(got))
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrFetchOutlivesCanceledCaller(t *testing.T) {
	c := New(NewMemoryStore(), time.Hour)
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchErr atomic.Value

	slow := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		fetchErr.Store(fmt.Sprint(ctx.Err()))
		return []byte("v"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctx, "shared", slow)
		first <- err
	}()
	<-started

	second := make(chan []byte, 1)
	go func() {
		got, err := c.GetOrFetch(context.Background(), "shared", slow)
		assert.NoError(t, err)
		second <- got
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting on the fetch")
	}

	close(release)
	assert.Equal(t, "v", string(<-second))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "<nil>", fetchErr.Load())
	assert.Equal(t, 1, c.store.(*MemoryStore).Len())
}

func TestGetOrFetchCanceledBeforeLookup(t *testing.T) {
	c := New(NewMemoryStore(), time.Hour)
	var calls int32

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetOrFetch(ctx, "k", countingFetch(&calls, "x"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestNilCacheFetchesDirectly(t *testing.T) {
	var c *Cache
	var calls int32

	got, err := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, "x"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
	assert.NoError(t, c.Close())

	hits, misses := c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

type brokenStore struct{}

func (brokenStore) Get(string) ([]byte, bool, error) { return nil, false, errors.New("read") }
func (brokenStore) Put(string, []byte, time.Duration) error { return errors.New("write") }
func (brokenStore) Close() error { return nil }

func TestBrokenStoreFallsBackToFetch(t *testing.T) {
	c := New(brokenStore{}, time.Hour)
	var calls int32

	for i := 0; i < 2; i++ {
		got, err := c.GetOrFetch(context.Background(), "k", countingFetch(&calls, "x"))
		require.NoError(t, err)
		assert.Equal(t, "x", string(got))
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMemoryStoreExpiry(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Put("k", []byte("v"), time.Minute))

	_, ok, _ := m.Get("k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = m.Get("k")
	assert.False(t, ok, "entry must expire at its deadline")
	assert.Equal(t, 0, m.Len())
}
