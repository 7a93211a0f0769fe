package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoragePutAndGet(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Put("/person/1/movie_credits", []byte(`{"cast":[]}`), time.Hour))

	payload, ok, err := s.Get("/person/1/movie_credits")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"cast":[]}`, string(payload))

	_, ok, err = s.Get("/person/2/movie_credits")
	require.NoError(t, err)
	assert.False(t, ok, "unknown key must miss")
}

func TestStoragePutReplaces(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Put("k", []byte("old"), time.Hour))
	require.NoError(t, s.Put("k", []byte("new"), time.Hour))

	payload, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", string(payload))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStorageExpiry(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put("short", []byte("a"), time.Minute))
	require.NoError(t, s.Put("long", []byte("b"), time.Hour))

	now = now.Add(2 * time.Minute)

	_, ok, err := s.Get("short")
	require.NoError(t, err)
	assert.False(t, ok, "expired row must miss")

	require.NoError(t, s.Put("short2", []byte("c"), time.Minute))
	now = now.Add(2 * time.Minute)

	purged, err := s.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	payload, ok, err := s.Get("long")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", string(payload))
}

func TestBadgerStoreInMemory(t *testing.T) {
	b, err := NewBadgerStore("")
	require.NoError(t, err)
	defer b.Close()

	_, ok, err := b.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Put("/movie/9/credits", []byte(`{"cast":[{"id":1}]}`), time.Hour))

	payload, ok, err := b.Get("/movie/9/credits")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"cast":[{"id":1}]}`, string(payload))
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")

	b, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, b.Put("k", []byte("v"), time.Hour))
	require.NoError(t, b.Close())

	b, err = NewBadgerStore(dir)
	require.NoError(t, err)
	defer b.Close()

	payload, ok, err := b.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(payload))
}
