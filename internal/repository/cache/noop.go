package cache

import (
	"context"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

// NoopCache is used when caching is disabled; every read is a miss
type NoopCache struct{}

func (NoopCache) GetItem(context.Context, int64) (*domain.Item, error) { return nil, domain.ErrNotFound }
func (NoopCache) SetItem(context.Context, *domain.Item) error          { return nil }

func (NoopCache) GetItemList(context.Context, domain.ItemFilter) ([]*domain.Item, int, error) {
	return nil, 0, domain.ErrNotFound
}

func (NoopCache) SetItemList(context.Context, domain.ItemFilter, []*domain.Item, int) error {
	return nil
}

func (NoopCache) GetReviewsList(context.Context, int64, int, int) ([]*domain.Review, int, error) {
	return nil, 0, domain.ErrNotFound
}

func (NoopCache) SetReviewsList(context.Context, int64, int, int, []*domain.Review, int) error {
	return nil
}

func (NoopCache) InvalidateItemLists(context.Context) error  { return nil }
func (NoopCache) InvalidateItem(context.Context, int64) error { return nil }
