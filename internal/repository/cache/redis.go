package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

const itemListKeysSet = "items:list_keys"

// RedisCache caches item reads and review pages. Every entry that can
// contain an item's aggregate is dropped by InvalidateItem.
type RedisCache struct {
	client      *redis.Client
	itemTTL     time.Duration
	itemListTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, itemTTL, itemListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      client,
		itemTTL:     itemTTL,
		itemListTTL: itemListTTL,
	}
}

type itemListEntry struct {
	Items []*domain.Item `json:"items"`
	Total int            `json:"total"`
}

type reviewListEntry struct {
	Reviews []*domain.Review `json:"reviews"`
	Total   int              `json:"total"`
}

func itemKey(id int64) string {
	return fmt.Sprintf("item:%d", id)
}

func itemListKey(f domain.ItemFilter) string {
	return fmt.Sprintf("items:list:limit:%d:offset:%d:category:%q:search:%q",
		f.Limit, f.Offset, f.Category, strings.ToLower(strings.TrimSpace(f.Search)))
}

func reviewListKey(itemID int64, limit, offset int) string {
	return fmt.Sprintf("item:%d:reviews:limit:%d:offset:%d", itemID, limit, offset)
}

func reviewKeysSet(itemID int64) string {
	return fmt.Sprintf("item:%d:review_keys", itemID)
}

func (c *RedisCache) getJSON(ctx context.Context, key string, v any) error {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(val, v)
}

// GetItem retrieves a cached item
func (c *RedisCache) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	var item domain.Item
	if err := c.getJSON(ctx, itemKey(id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// SetItem stores an item in cache
func (c *RedisCache) SetItem(ctx context.Context, item *domain.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, itemKey(item.ID), data, c.itemTTL).Err()
}

// GetItemList retrieves a cached item listing page and its total
func (c *RedisCache) GetItemList(ctx context.Context, filter domain.ItemFilter) ([]*domain.Item, int, error) {
	var entry itemListEntry
	if err := c.getJSON(ctx, itemListKey(filter), &entry); err != nil {
		return nil, 0, err
	}
	return entry.Items, entry.Total, nil
}

// SetItemList stores a listing page and tracks its key for invalidation
func (c *RedisCache) SetItemList(ctx context.Context, filter domain.ItemFilter, items []*domain.Item, total int) error {
	data, err := json.Marshal(itemListEntry{Items: items, Total: total})
	if err != nil {
		return err
	}

	key := itemListKey(filter)
	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.itemListTTL)
	pipe.SAdd(ctx, itemListKeysSet, key)
	pipe.Expire(ctx, itemListKeysSet, c.itemListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// GetReviewsList retrieves a cached page of an item's reviews
func (c *RedisCache) GetReviewsList(ctx context.Context, itemID int64, limit, offset int) ([]*domain.Review, int, error) {
	var entry reviewListEntry
	if err := c.getJSON(ctx, reviewListKey(itemID, limit, offset), &entry); err != nil {
		return nil, 0, err
	}
	return entry.Reviews, entry.Total, nil
}

// SetReviewsList stores a page of reviews and tracks its key in a SET
func (c *RedisCache) SetReviewsList(ctx context.Context, itemID int64, limit, offset int, reviews []*domain.Review, total int) error {
	data, err := json.Marshal(reviewListEntry{Reviews: reviews, Total: total})
	if err != nil {
		return err
	}

	key := reviewListKey(itemID, limit, offset)
	trackingKey := reviewKeysSet(itemID)

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, c.itemListTTL)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, c.itemListTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateItemLists removes every cached listing page
func (c *RedisCache) InvalidateItemLists(ctx context.Context) error {
	return c.unlinkTracked(ctx, itemListKeysSet)
}

// InvalidateItem removes the item, its review pages and all listing pages
func (c *RedisCache) InvalidateItem(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, itemKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	if err := c.unlinkTracked(ctx, reviewKeysSet(id)); err != nil {
		return err
	}

	return c.InvalidateItemLists(ctx)
}

func (c *RedisCache) unlinkTracked(ctx context.Context, trackingKey string) error {
	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	if len(keys) > 0 {
		keys = append(keys, trackingKey)
		return c.client.Unlink(ctx, keys...).Err()
	}

	return nil
}
