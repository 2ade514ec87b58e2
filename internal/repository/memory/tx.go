package memory

import (
	"context"
	"time"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

// storeTx implements domain.ReviewTx while the caller holds an item lock
type storeTx struct {
	store *Store
	undo  []func()
}

func (t *storeTx) rollback() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *storeTx) InsertReview(ctx context.Context, review *domain.Review) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[review.ItemID]; !ok {
		return domain.ErrConflict
	}

	s.nextReviewID++
	now := s.now()
	review.ID = s.nextReviewID
	review.CreatedAt = now
	review.UpdatedAt = now
	s.reviews[review.ID] = copyReview(review)

	id := review.ID
	t.undo = append(t.undo, func() { delete(s.reviews, id) })
	return nil
}

func (t *storeTx) GetReview(ctx context.Context, id int64) (*domain.Review, error) {
	return t.store.Reviews().GetByID(ctx, id)
}

func (t *storeTx) UpdateReview(ctx context.Context, review *domain.Review) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reviews[review.ID]
	if !ok {
		return domain.ErrNotFound
	}
	prev := copyReview(cur)

	review.UpdatedAt = s.now()
	cur.Rating = review.Rating
	cur.Title = review.Title
	cur.Comment = review.Comment
	cur.UpdatedAt = review.UpdatedAt

	t.undo = append(t.undo, func() { s.reviews[prev.ID] = prev })
	return nil
}

func (t *storeTx) DeleteReview(ctx context.Context, id int64) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.reviews, id)

	t.undo = append(t.undo, func() { s.reviews[cur.ID] = cur })
	return nil
}

func (t *storeTx) RatingStats(ctx context.Context, itemID int64) (int64, int, error) {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		sum   int64
		count int
	)
	for _, rv := range s.reviews {
		if rv.ItemID == itemID {
			sum += int64(rv.Rating)
			count++
		}
	}
	return sum, count, nil
}

func (t *storeTx) SetAggregate(ctx context.Context, itemID int64, averageRating float64, totalReviews int, updatedAt time.Time) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	prevAvg, prevTotal, prevUpdated := it.AverageRating, it.TotalReviews, it.UpdatedAt

	it.AverageRating = averageRating
	it.TotalReviews = totalReviews
	it.UpdatedAt = updatedAt

	t.undo = append(t.undo, func() {
		if cur, ok := s.items[itemID]; ok {
			cur.AverageRating = prevAvg
			cur.TotalReviews = prevTotal
			cur.UpdatedAt = prevUpdated
		}
	})
	return nil
}
