// Package memory is an in-process record store with the same semantics as
// the PostgreSQL repositories: per-item exclusive locks for review writes,
// all-or-nothing transactions and no cascade from items to reviews.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

// Store holds items and reviews in memory
type Store struct {
	mu           sync.RWMutex
	items        map[int64]*domain.Item
	reviews      map[int64]*domain.Review
	nextItemID   int64
	nextReviewID int64

	locksMu   sync.Mutex
	itemLocks map[int64]*sync.Mutex

	now func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		items:     make(map[int64]*domain.Item),
		reviews:   make(map[int64]*domain.Review),
		itemLocks: make(map[int64]*sync.Mutex),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Items returns the store as a domain.ItemRepository
func (s *Store) Items() domain.ItemRepository { return (*itemRepo)(s) }

// Reviews returns the store as a domain.ReviewRepository
func (s *Store) Reviews() domain.ReviewRepository { return (*reviewRepo)(s) }

func (s *Store) lockFor(itemID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.itemLocks[itemID]
	if !ok {
		l = &sync.Mutex{}
		s.itemLocks[itemID] = l
	}
	return l
}

// WithItemLock implements domain.ItemLocker. Writes made through the tx are
// applied immediately and undone in reverse order if fn fails.
func (s *Store) WithItemLock(ctx context.Context, itemID int64, fn func(ctx context.Context, tx domain.ReviewTx) error) error {
	l := s.lockFor(itemID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	_, ok := s.items[itemID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}

	tx := &storeTx{store: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func copyItem(it *domain.Item) *domain.Item {
	c := *it
	return &c
}

func copyReview(r *domain.Review) *domain.Review {
	c := *r
	return &c
}

type itemRepo Store

func (r *itemRepo) Create(ctx context.Context, item *domain.Item) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextItemID++
	now := s.now()
	item.ID = s.nextItemID
	item.AverageRating = 0
	item.TotalReviews = 0
	item.CreatedAt = now
	item.UpdatedAt = now
	s.items[item.ID] = copyItem(item)
	return nil
}

func (r *itemRepo) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyItem(it), nil
}

func (r *itemRepo) matching(filter domain.ItemFilter) []*domain.Item {
	s := (*Store)(r)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var out []*domain.Item
	for _, it := range s.items {
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		if search != "" {
			hay := strings.ToLower(it.Name)
			if it.Description != nil {
				hay += "\n" + strings.ToLower(*it.Description)
			}
			if !strings.Contains(hay, search) {
				continue
			}
		}
		out = append(out, it)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *itemRepo) List(ctx context.Context, filter domain.ItemFilter) ([]*domain.Item, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := r.matching(filter)
	page := []*domain.Item{}
	for i := filter.Offset; i < len(all) && len(page) < filter.Limit; i++ {
		page = append(page, copyItem(all[i]))
	}
	return page, nil
}

func (r *itemRepo) Count(ctx context.Context, filter domain.ItemFilter) (int, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(r.matching(filter)), nil
}

func (r *itemRepo) Update(ctx context.Context, item *domain.Item) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[item.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Name = item.Name
	cur.Category = item.Category
	cur.Description = item.Description
	cur.ImageURL = item.ImageURL
	cur.UpdatedAt = s.now()

	*item = *copyItem(cur)
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id int64) error {
	s := (*Store)(r)
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	for _, rv := range s.reviews {
		if rv.ItemID == id {
			return domain.ErrConflict
		}
	}
	delete(s.items, id)
	return nil
}

func (r *itemRepo) Categories(ctx context.Context) ([]string, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := []string{}
	for _, it := range s.items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	sort.Strings(out)
	return out, nil
}

type reviewRepo Store

func (r *reviewRepo) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	rv, ok := s.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyReview(rv), nil
}

func (r *reviewRepo) ListByItemID(ctx context.Context, itemID int64, limit, offset int) ([]*domain.Review, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*domain.Review
	for _, rv := range s.reviews {
		if rv.ItemID == itemID {
			all = append(all, rv)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	page := []*domain.Review{}
	for i := offset; i < len(all) && len(page) < limit; i++ {
		page = append(page, copyReview(all[i]))
	}
	return page, nil
}

func (r *reviewRepo) CountByItemID(ctx context.Context, itemID int64) (int, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rv := range s.reviews {
		if rv.ItemID == itemID {
			n++
		}
	}
	return n, nil
}
