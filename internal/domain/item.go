package domain

import (
	"context"
	"time"
)

// Item represents a reviewable entity. AverageRating and TotalReviews are
// derived from the item's reviews and are only written by recomputation.
type Item struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	Category      string    `json:"category" db:"category" validate:"required,min=1,max=100"`
	Description   *string   `json:"description,omitempty" db:"description"`
	ImageURL      *string   `json:"imageUrl,omitempty" db:"image_url" validate:"omitempty,url"`
	AverageRating float64   `json:"averageRating" db:"average_rating"`
	TotalReviews  int       `json:"totalReviews" db:"total_reviews"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// ItemPatch holds the non-aggregate fields an item update may change.
// Nil fields keep their current value.
type ItemPatch struct {
	Name        *string
	Category    *string
	Description *string
	ImageURL    *string
}

// Apply copies the supplied fields onto item
func (p ItemPatch) Apply(item *Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Description != nil {
		item.Description = p.Description
	}
	if p.ImageURL != nil {
		item.ImageURL = p.ImageURL
	}
}

// ItemFilter narrows an item listing
type ItemFilter struct {
	Limit    int
	Offset   int
	Search   string // substring over name and description, case-insensitive
	Category string // exact match
}

// ItemRepository defines the interface for item data access
type ItemRepository interface {
	// Create creates a new item with an empty aggregate
	Create(ctx context.Context, item *Item) error

	// GetByID retrieves an item by ID
	GetByID(ctx context.Context, id int64) (*Item, error)

	// List retrieves a page of items matching the filter
	List(ctx context.Context, filter ItemFilter) ([]*Item, error)

	// Count returns the number of items matching the filter, ignoring paging
	Count(ctx context.Context, filter ItemFilter) (int, error)

	// Update writes the non-aggregate fields of an item
	Update(ctx context.Context, item *Item) error

	// Delete removes an item; ErrConflict if reviews still reference it
	Delete(ctx context.Context, id int64) error

	// Categories returns the distinct category names in use
	Categories(ctx context.Context) ([]string, error)
}
