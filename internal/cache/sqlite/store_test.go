package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"content-assist/internal/cache"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cache_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetThenGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "ai:assist:abc", []byte(`{"body":{"response":"hello"}}`), time.Hour))
	v, err := s.Get(ctx, "ai:assist:abc")
	require.NoError(t, err)
	require.Equal(t, `{"body":{"response":"hello"}}`, string(v))
}

func TestStore_MissAndExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "absent")
	require.ErrorIs(t, err, cache.ErrMiss)

	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	require.NoError(t, s.Set(ctx, "old", []byte("v"), time.Hour))
	s.now = time.Now

	_, err = s.Get(ctx, "old")
	require.ErrorIs(t, err, cache.ErrMiss)
}

func TestStore_Overwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("one"), time.Hour))
	require.NoError(t, s.Set(ctx, "k", []byte("two"), time.Hour))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "two", string(v))
}

func TestStore_RejectsSubSecondTTL(t *testing.T) {
	s := newTestStore(t)
	require.Error(t, s.Set(context.Background(), "k", []byte("v"), 500*time.Millisecond))
}

func TestStore_StatsAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "fresh", []byte("v"), time.Hour))
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	require.NoError(t, s.Set(ctx, "stale", []byte("v"), time.Hour))
	s.now = time.Now

	_, _ = s.Get(ctx, "fresh")
	_, _ = s.Get(ctx, "stale")

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Entries: 2, Hits: 1, Misses: 1}, stats)

	removed, err := s.Clear(ctx, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	removed, err = s.Clear(ctx, false)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Entries)
}

func TestStore_ClearExpiredUsesStoredTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	require.NoError(t, s.Set(ctx, "hour-old", []byte("v"), time.Second))
	s.now = time.Now
	require.NoError(t, s.Set(ctx, "recent", []byte("v"), time.Minute))

	var createdAt int64
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT created_at FROM cache_entries WHERE key = ?`, "recent").Scan(&createdAt))
	require.InDelta(t, time.Now().Unix(), createdAt, 5)

	removed, err := s.Clear(ctx, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	v, err := s.Get(ctx, "recent")
	require.NoError(t, err)
	require.Equal(t, "v", string(v))
	_, err = s.Get(ctx, "hour-old")
	require.ErrorIs(t, err, cache.ErrMiss)
}
