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

type board struct {
	Names []string `json:"names"`
	Total int64    `json:"total"`
}

func newTestCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, "test"), mr
}

func TestFetchCachesUntilScopeChanges(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	loads := 0
	load := func(context.Context) (board, error) {
		loads++
		return board{Names: []string{"pepe"}, Total: int64(loads)}, nil
	}

	got, err := Fetch(ctx, c, GuildScope("g1"), "top:10", time.Minute, load)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Total)

	got, err = Fetch(ctx, c, GuildScope("g1"), "top:10", time.Minute, load)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Total)
	assert.Equal(t, 1, loads)

	// 其他服务器的变化不影响本服务器
	c.GuildChanged(ctx, "g2")
	_, err = Fetch(ctx, c, GuildScope("g1"), "top:10", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 1, loads)

	c.GuildChanged(ctx, "g1")
	got, err = Fetch(ctx, c, GuildScope("g1"), "top:10", time.Minute, load)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Total)

	counters := c.Counters()
	assert.EqualValues(t, 2, counters.Hits)
	assert.EqualValues(t, 2, counters.Misses)
}

func TestAllChangedInvalidatesEveryScope(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	loads := 0
	load := func(context.Context) (int, error) { loads++; return loads, nil }

	_, _ = Fetch(ctx, c, GuildScope("g1"), "a", time.Minute, load)
	_, _ = Fetch(ctx, c, UserScope("u1"), "b", time.Minute, load)
	_, _ = Fetch(ctx, c, GlobalScope(), "c", time.Minute, load)
	require.Equal(t, 3, loads)

	c.AllChanged(ctx)
	_, _ = Fetch(ctx, c, GuildScope("g1"), "a", time.Minute, load)
	_, _ = Fetch(ctx, c, UserScope("u1"), "b", time.Minute, load)
	_, _ = Fetch(ctx, c, GlobalScope(), "c", time.Minute, load)
	assert.Equal(t, 6, loads)
}

func TestUserChangedInvalidatesGlobalBoard(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	loads := 0
	load := func(context.Context) (int, error) { loads++; return loads, nil }

	_, _ = Fetch(ctx, c, GlobalScope(), "leaderboard", time.Minute, load)
	c.UserChanged(ctx, "u1")
	v, err := Fetch(ctx, c, GlobalScope(), "leaderboard", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestFetchExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	loads := 0
	load := func(context.Context) (int, error) { loads++; return loads, nil }

	_, _ = Fetch(ctx, c, GuildScope("g1"), "k", time.Minute, load)
	mr.FastForward(2 * time.Minute)
	v, err := Fetch(ctx, c, GuildScope("g1"), "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestDisabledCachePassesThrough(t *testing.T) {
	ctx := context.Background()
	c := NewStatsCache(nil, "")
	assert.False(t, c.Enabled())

	loads := 0
	load := func(context.Context) (int, error) { loads++; return loads, nil }
	_, _ = Fetch(ctx, c, GuildScope("g1"), "k", time.Minute, load)
	_, _ = Fetch(ctx, c, GuildScope("g1"), "k", time.Minute, load)
	assert.Equal(t, 2, loads)

	c.GuildChanged(ctx, "g1")
	c.AllChanged(ctx)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	boom := errors.New("db down")

	_, err := Fetch(ctx, c, GuildScope("g1"), "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	v, err := Fetch(ctx, c, GuildScope("g1"), "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestRedisDownFallsBackToLoader(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	mr.Close()

	v, err := Fetch(ctx, c, GuildScope("g1"), "k", time.Minute, func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Positive(t, c.Counters().Errors)
}
