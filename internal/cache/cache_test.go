package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/snipero7/qr24-sub000/internal/models"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "test"), mr
}

func TestStoreDisabledIsNoop(t *testing.T) {
	store := NewStore(nil, "")
	require.False(t, store.Enabled())
	hit, err := store.GetJSON(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, store.SetJSON(context.Background(), "k", 1, time.Minute))
	require.Equal(t, "rs:k", store.Key("k"))
}

func TestStoreJSONRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "shop", map[string]string{"name": "Fix Corner"}, time.Minute))
	require.True(t, mr.Exists("test:shop"))

	var got map[string]string
	hit, err := store.GetJSON(ctx, "shop", &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "Fix Corner", got["name"])

	require.NoError(t, store.Del(ctx, "shop"))
	hit, err = store.GetJSON(ctx, "shop", &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestAdminAuthStateCache(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	state := BuildAdminAuthState(&models.Admin{ID: 3, Username: "tech", TokenVersion: 2})
	require.NoError(t, store.SetAdminAuthState(ctx, state))

	got, hit, err := store.GetAdminAuthState(ctx, 3)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, uint64(2), got.TokenVersion)

	require.NoError(t, store.DelAdminAuthState(ctx, 3))
	_, hit, err = store.GetAdminAuthState(ctx, 3)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestThrottleStoreLocksAtMaxAttempts(t *testing.T) {
	store, mr := newTestStore(t)
	throttle := NewThrottleStore(store)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	for i := 1; i < 5; i++ {
		state, err := throttle.RecordFailure(ctx, "email:owner", 5, 15*time.Minute, 15*time.Minute, now)
		require.NoError(t, err)
		require.Equal(t, i, state.Attempts)
		require.False(t, state.IsLocked(now))
	}
	state, err := throttle.RecordFailure(ctx, "email:owner", 5, 15*time.Minute, 15*time.Minute, now)
	require.NoError(t, err)
	require.Equal(t, 5, state.Attempts)
	require.True(t, state.IsLocked(now.Add(time.Minute)))
	require.False(t, state.IsLocked(now.Add(16*time.Minute)))
	require.Equal(t, 15*time.Minute, mr.TTL("test:throttle:email:owner"))

	require.NoError(t, throttle.Clear(ctx, "email:owner", "ip:1.2.3.4"))
	state, err = throttle.Get(ctx, "email:owner")
	require.NoError(t, err)
	require.Equal(t, 0, state.Attempts)
	require.Nil(t, state.LockedUntil)
}

func TestThrottleStoreUnavailable(t *testing.T) {
	throttle := NewThrottleStore(NewStore(nil, ""))
	_, err := throttle.Get(context.Background(), "ip:1.1.1.1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestOnceLockAcquireOnlyOnce(t *testing.T) {
	store, mr := newTestStore(t)
	lock := NewOnceLock(store)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "backup:lock:2025010110", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Acquire(ctx, "backup:lock:2025010110", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(time.Hour + time.Second)
	ok, err = lock.Acquire(ctx, "backup:lock:2025010110", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
}
