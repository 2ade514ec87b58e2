package domain

import (
	"context"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review represents a single user's rating and feedback for one item
type Review struct {
	ID        int64     `json:"id" db:"id"`
	ItemID    int64     `json:"itemId" db:"item_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Rating    int       `json:"rating" db:"rating"`
	Title     string    `json:"title" db:"title"`
	Comment   *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ReviewPatch is a partial review update. Nil fields keep their value.
type ReviewPatch struct {
	Rating  *int
	Title   *string
	Comment *string
}

// Apply copies the supplied fields onto review
func (p ReviewPatch) Apply(review *Review) {
	if p.Rating != nil {
		review.Rating = *p.Rating
	}
	if p.Title != nil {
		review.Title = *p.Title
	}
	if p.Comment != nil {
		review.Comment = p.Comment
	}
}

// AffectsAggregate reports whether applying the patch can change the item's
// aggregate. Only the rating feeds into it.
func (p ReviewPatch) AffectsAggregate() bool {
	return p.Rating != nil
}

// ValidRating reports whether r is an allowed star rating
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// ReviewRepository defines the read side of review data access
type ReviewRepository interface {
	// GetByID retrieves a review by ID
	GetByID(ctx context.Context, id int64) (*Review, error)

	// ListByItemID retrieves reviews for an item, newest first
	ListByItemID(ctx context.Context, itemID int64, limit, offset int) ([]*Review, error)

	// CountByItemID returns the total number of reviews for an item
	CountByItemID(ctx context.Context, itemID int64) (int, error)
}
