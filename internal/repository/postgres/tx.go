package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

// TxManager implements domain.ItemLocker on PostgreSQL row locks
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager creates a new transaction manager
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithItemLock opens a transaction, locks the item row with FOR UPDATE and
// runs fn. Every review write for the item goes through here, so writers of
// one item queue up on the row lock while other items proceed in parallel.
func (m *TxManager) WithItemLock(ctx context.Context, itemID int64, fn func(ctx context.Context, tx domain.ReviewTx) error) (err error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID int64
	err = tx.GetContext(ctx, &lockedID, `SELECT id FROM items WHERE id = $1 FOR UPDATE`, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return mapError(err)
	}

	if err = fn(ctx, &reviewTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return mapError(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// reviewTx implements domain.ReviewTx inside an open transaction
type reviewTx struct {
	tx *sqlx.Tx
}

func (t *reviewTx) InsertReview(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (item_id, user_id, rating, title, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now

	err := t.tx.QueryRowxContext(
		ctx,
		query,
		review.ItemID,
		review.UserID,
		review.Rating,
		review.Title,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	).Scan(&review.ID)
	if err != nil {
		return mapError(err)
	}

	return nil
}

func (t *reviewTx) GetReview(ctx context.Context, id int64) (*domain.Review, error) {
	return getReview(ctx, t.tx, id)
}

func (t *reviewTx) UpdateReview(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET rating = $1, title = $2, comment = $3, updated_at = $4
		WHERE id = $5
	`

	review.UpdatedAt = time.Now().UTC()

	result, err := t.tx.ExecContext(
		ctx,
		query,
		review.Rating,
		review.Title,
		review.Comment,
		review.UpdatedAt,
		review.ID,
	)
	if err != nil {
		return mapError(err)
	}

	return expectOneRow(result)
}

func (t *reviewTx) DeleteReview(ctx context.Context, id int64) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}

	return expectOneRow(result)
}

func (t *reviewTx) RatingStats(ctx context.Context, itemID int64) (int64, int, error) {
	query := `SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM reviews WHERE item_id = $1`

	var (
		sum   int64
		count int
	)
	if err := t.tx.QueryRowxContext(ctx, query, itemID).Scan(&sum, &count); err != nil {
		return 0, 0, mapError(err)
	}

	return sum, count, nil
}

func (t *reviewTx) SetAggregate(ctx context.Context, itemID int64, averageRating float64, totalReviews int, updatedAt time.Time) error {
	query := `
		UPDATE items
		SET average_rating = $1, total_reviews = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := t.tx.ExecContext(ctx, query, averageRating, totalReviews, updatedAt, itemID)
	if err != nil {
		return mapError(err)
	}

	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
