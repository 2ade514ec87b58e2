package domain

import (
	"context"
	"time"
)

// ItemLocker runs review mutations for one item as a single unit of work.
type ItemLocker interface {
	// WithItemLock runs fn in a transaction that holds an exclusive lock on
	// the item row for its whole duration. It returns ErrNotFound without
	// calling fn when the item does not exist. The transaction commits only
	// if fn returns nil.
	WithItemLock(ctx context.Context, itemID int64, fn func(ctx context.Context, tx ReviewTx) error) error
}

// ReviewTx is the set of writes available while an item lock is held
type ReviewTx interface {
	InsertReview(ctx context.Context, review *Review) error
	GetReview(ctx context.Context, id int64) (*Review, error)
	UpdateReview(ctx context.Context, review *Review) error
	DeleteReview(ctx context.Context, id int64) error

	// RatingStats returns the sum and count of ratings of the item's reviews
	RatingStats(ctx context.Context, itemID int64) (sum int64, count int, err error)

	// SetAggregate writes the derived fields of the item. ErrNotFound if
	// the item row is missing.
	SetAggregate(ctx context.Context, itemID int64, averageRating float64, totalReviews int, updatedAt time.Time) error
}
