package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, 5*time.Minute, time.Minute), mr
}

func TestRedisCache_Item(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.GetItem(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	item := &domain.Item{ID: 1, Name: "Kettle", Category: "kitchen", AverageRating: 4.5, TotalReviews: 2}
	require.NoError(t, c.SetItem(ctx, item))

	cached, err := c.GetItem(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, item.Name, cached.Name)
	assert.Equal(t, 4.5, cached.AverageRating)
	assert.Equal(t, 2, cached.TotalReviews)

	assert.Equal(t, 5*time.Minute, mr.TTL(itemKey(1)))

	mr.FastForward(6 * time.Minute)
	_, err = c.GetItem(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisCache_ItemList(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	filter := domain.ItemFilter{Limit: 10, Category: "kitchen"}

	_, _, err := c.GetItemList(ctx, filter)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	items := []*domain.Item{{ID: 2, Name: "B"}, {ID: 1, Name: "A"}}
	require.NoError(t, c.SetItemList(ctx, filter, items, 12))

	cached, total, err := c.GetItemList(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, cached, 2)
	assert.Equal(t, int64(2), cached[0].ID)

	members, err := mr.Members(itemListKeysSet)
	require.NoError(t, err)
	assert.Equal(t, []string{itemListKey(filter)}, members)

	require.NoError(t, c.InvalidateItemLists(ctx))
	_, _, err = c.GetItemList(ctx, filter)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, mr.Exists(itemListKeysSet))
}

func TestRedisCache_ItemListKeyNormalizesSearch(t *testing.T) {
	a := itemListKey(domain.ItemFilter{Limit: 10, Search: "  Kettle "})
	b := itemListKey(domain.ItemFilter{Limit: 10, Search: "kettle"})
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, itemListKey(domain.ItemFilter{Limit: 10, Search: "kettle", Category: "kitchen"}))
}

func TestRedisCache_InvalidateItem(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.SetItem(ctx, &domain.Item{ID: 1, Name: "Kettle"}))
	require.NoError(t, c.SetItem(ctx, &domain.Item{ID: 2, Name: "Toaster"}))
	require.NoError(t, c.SetReviewsList(ctx, 1, 20, 0, []*domain.Review{{ID: 1, ItemID: 1, Rating: 5}}, 1))
	require.NoError(t, c.SetReviewsList(ctx, 1, 20, 20, []*domain.Review{}, 1))
	require.NoError(t, c.SetReviewsList(ctx, 2, 20, 0, []*domain.Review{{ID: 2, ItemID: 2, Rating: 3}}, 1))
	require.NoError(t, c.SetItemList(ctx, domain.ItemFilter{Limit: 10}, []*domain.Item{{ID: 1}}, 2))

	require.NoError(t, c.InvalidateItem(ctx, 1))

	_, err := c.GetItem(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = c.GetReviewsList(ctx, 1, 20, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = c.GetReviewsList(ctx, 1, 20, 20)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = c.GetItemList(ctx, domain.ItemFilter{Limit: 10})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, mr.Exists(reviewKeysSet(1)))

	// other items stay cached
	_, err = c.GetItem(ctx, 2)
	assert.NoError(t, err)
	reviews, total, err := c.GetReviewsList(ctx, 2, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, reviews, 1)
}

func TestRedisCache_InvalidateUncachedItem(t *testing.T) {
	c, _ := setupTestRedis(t)
	assert.NoError(t, c.InvalidateItem(context.Background(), 42))
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	ctx := context.Background()
	assert.Error(t, c.SetItem(ctx, &domain.Item{ID: 1}))
	assert.Error(t, c.InvalidateItem(ctx, 1))

	_, err := c.GetItem(ctx, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
