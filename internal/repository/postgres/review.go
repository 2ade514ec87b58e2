package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

const reviewColumns = `id, item_id, user_id, rating, title, comment, created_at, updated_at`

// ReviewRepository implements domain.ReviewRepository for PostgreSQL.
// Writes go through TxManager so they always hold the item lock.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	return getReview(ctx, r.db, id)
}

// ListByItemID retrieves reviews for an item with pagination
func (r *ReviewRepository) ListByItemID(ctx context.Context, itemID int64, limit, offset int) ([]*domain.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE item_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	reviews := []*domain.Review{}
	if err := r.db.SelectContext(ctx, &reviews, query, itemID, limit, offset); err != nil {
		return nil, mapError(err)
	}

	return reviews, nil
}

// CountByItemID returns the total number of reviews for an item
func (r *ReviewRepository) CountByItemID(ctx context.Context, itemID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reviews WHERE item_id = $1`, itemID)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func getReview(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	var review domain.Review
	if err := sqlx.GetContext(ctx, q, &review, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapError(err)
	}

	return &review, nil
}
