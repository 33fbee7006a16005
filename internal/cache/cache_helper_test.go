package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counters struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	helper := NewCacheHelper(client, StatsCacheConfig.Prefix)

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return counters{Total: 5, Pending: 2}, nil
	}

	var first counters
	require.NoError(t, helper.CacheOrExecute(ctx, StatsKey, &first, time.Minute, fetch))
	assert.Equal(t, counters{Total: 5, Pending: 2}, first)
	assert.True(t, mr.Exists("stats:admin"))
	assert.Equal(t, time.Minute, mr.TTL("stats:admin"))

	var second counters
	require.NoError(t, helper.CacheOrExecute(ctx, StatsKey, &second, time.Minute, fetch))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	require.NoError(t, helper.CacheOrExecute(ctx, StatsKey, &second, time.Minute, fetch))
	assert.Equal(t, 2, calls)
}

func TestCacheHelper_CacheOrExecuteFetchError(t *testing.T) {
	mr, client := newRedis(t)
	helper := NewCacheHelper(client, "p:")
	boom := errors.New("db down")

	var out counters
	err := helper.CacheOrExecute(context.Background(), "k", &out, time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("p:k"))
}

func TestCacheHelper_CorruptEntryFallsThrough(t *testing.T) {
	mr, client := newRedis(t)
	helper := NewCacheHelper(client, "p:")
	require.NoError(t, mr.Set("p:k", "{not json"))

	var out counters
	err := helper.CacheOrExecute(context.Background(), "k", &out, time.Minute, func() (interface{}, error) {
		return counters{Total: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	users := NewCacheHelper(client, UserCacheConfig.Prefix)

	for id := uint(1); id <= 150; id++ {
		require.NoError(t, users.Set(ctx, UserKey(id), counters{Total: int64(id)}, time.Minute))
	}
	require.NoError(t, mr.Set("stats:admin", "{}"))

	require.NoError(t, users.InvalidatePattern(ctx, "*"))

	assert.Equal(t, []string{"stats:admin"}, mr.Keys())
}

func TestCacheHelper_Delete(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	cm := NewCacheManager(client)

	require.NoError(t, cm.User.Set(ctx, UserKey(9), counters{Total: 9}, time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, StatsKey, counters{Total: 1}, time.Minute))

	InvalidateUser(ctx, cm, 9)

	var out counters
	assert.ErrorIs(t, cm.User.Get(ctx, UserKey(9), &out), ErrCacheNotFound)
	assert.ErrorIs(t, cm.Stats.Get(ctx, StatsKey, &out), ErrCacheNotFound)
	assert.NoError(t, cm.HealthCheck(ctx))
}

func TestCacheHelper_NilClient(t *testing.T) {
	ctx := context.Background()
	cm := NewCacheManager(nil)

	assert.False(t, cm.Stats.Available())
	assert.NoError(t, cm.Stats.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, cm.Stats.Delete(ctx, "k"))
	assert.NoError(t, cm.Stats.InvalidatePattern(ctx, "*"))
	assert.ErrorIs(t, cm.Stats.Get(ctx, "k", new(int)), ErrCacheNotAvailable)
	assert.ErrorIs(t, cm.HealthCheck(ctx), ErrCacheNotAvailable)

	calls := 0
	var out counters
	for i := 0; i < 2; i++ {
		require.NoError(t, cm.Stats.CacheOrExecute(ctx, "k", &out, time.Minute, func() (interface{}, error) {
			calls++
			return counters{Pending: 3}, nil
		}))
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(3), out.Pending)

	// Logging helpers tolerate a missing cache
	InvalidateStats(ctx, cm)
	SafeInvalidatePattern(ctx, cm.User, "*")
}
