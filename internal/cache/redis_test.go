package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursepay/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func sampleItems() []domain.CartItem {
	return []domain.CartItem{
		{
			ID:       1,
			UserID:   42,
			CourseID: 7,
			AddedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			Course: &domain.Course{
				ID:           7,
				Title:        "Go in Production",
				InstructorID: 3,
				Price:        decimal.RequireFromString("499.00"),
				IsApproved:   true,
			},
		},
	}
}

func TestRedisCache_SetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 42, 0, sampleItems()))
	assert.True(t, mr.Exists("cart:42"))

	ttl := mr.TTL("cart:42")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	items, err := c.Get(ctx, 42)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].CourseID)
	assert.Equal(t, "Go in Production", items[0].Course.Title)
	assert.True(t, decimal.RequireFromString("499").Equal(items[0].Course.Price))
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, _ := setupTestRedis(t)

	_, err := c.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 42, 0, sampleItems()))
	require.NoError(t, c.Delete(ctx, 42))
	assert.False(t, mr.Exists("cart:42"))

	_, err := c.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_FillAfterDeleteIsDropped(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	version, err := c.Version(ctx, 42)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, 42))

	require.NoError(t, c.Set(ctx, 42, version, sampleItems()))
	assert.False(t, mr.Exists("cart:42"))

	current, err := c.Version(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, version+1, current)
	require.NoError(t, c.Set(ctx, 42, current, sampleItems()))
	assert.True(t, mr.Exists("cart:42"))
}

func TestRedisCache_GetCorruptedValue(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:42", "not-json"))

	_, err := c.Get(context.Background(), 42)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNoopCache(t *testing.T) {
	var c CartCache = NoopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, 0, sampleItems()))
	_, err := c.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheMiss)
	require.NoError(t, c.Delete(ctx, 1))
}
