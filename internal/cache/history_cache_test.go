package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litqa/internal/model"
)

func newTestCache(t *testing.T) (*HistoryCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHistoryCache(client, time.Minute, 5*time.Second), srv
}

func TestHistoryCacheSetAndGet(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestCache(t)

	_, hit, err := c.GetHistory(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)

	records := []model.QARecord{{ID: 1, UserID: 1, Question: "q", Answer: "a", References: []string{"paper1"}}}
	require.NoError(t, c.SetHistory(ctx, 1, records))
	assert.True(t, srv.Exists("qa:history:1"))

	got, hit, err := c.GetHistory(ctx, 1)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, "q", got[0].Question)
	assert.Equal(t, []string{"paper1"}, got[0].References)

	srv.FastForward(2 * time.Minute)
	_, hit, err = c.GetHistory(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit, "entry expires after the history ttl")
}

func TestHistoryCacheDirtyMarker(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestCache(t)

	require.NoError(t, c.SetHistory(ctx, 4, []model.QARecord{{Question: "old"}}))
	require.NoError(t, c.Invalidate(ctx, 4))

	dirty, err := c.IsDirty(ctx, 4)
	require.NoError(t, err)
	assert.True(t, dirty)
	_, hit, err := c.GetHistory(ctx, 4)
	require.NoError(t, err)
	assert.False(t, hit)

	srv.FastForward(6 * time.Second)
	dirty, err = c.IsDirty(ctx, 4)
	require.NoError(t, err)
	assert.False(t, dirty, "dirty marker expires on its own")

	require.NoError(t, c.Invalidate(ctx, 4))
	require.NoError(t, c.ClearDirty(ctx, 4))
	dirty, err = c.IsDirty(ctx, 4)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestHistoryCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestCache(t)
	require.NoError(t, srv.Set("qa:history:2", "not json"))

	_, hit, err := c.GetHistory(ctx, 2)
	assert.Error(t, err)
	assert.False(t, hit)
}
