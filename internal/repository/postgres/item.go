package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

const itemColumns = `id, name, category, description, image_url, average_rating, total_reviews, created_at, updated_at`

// ItemRepository implements domain.ItemRepository for PostgreSQL
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new PostgreSQL item repository
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create creates a new item. The aggregate starts at 0/0.
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (name, category, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, average_rating, total_reviews
	`

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	err := r.db.QueryRowxContext(
		ctx,
		query,
		item.Name,
		item.Category,
		item.Description,
		item.ImageURL,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(
		&item.ID,
		&item.AverageRating,
		&item.TotalReviews,
	)
	if err != nil {
		return mapError(err)
	}

	return nil
}

// GetByID retrieves an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	var item domain.Item
	err := r.db.GetContext(ctx, &item, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapError(err)
	}

	return &item, nil
}

// List retrieves a page of items matching the filter, newest first
func (r *ItemRepository) List(ctx context.Context, filter domain.ItemFilter) ([]*domain.Item, error) {
	where, args := itemFilterClause(filter)
	query := fmt.Sprintf(
		`SELECT %s FROM items%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		itemColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Limit, filter.Offset)

	items := []*domain.Item{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, mapError(err)
	}

	return items, nil
}

// Count returns the number of items matching the filter
func (r *ItemRepository) Count(ctx context.Context, filter domain.ItemFilter) (int, error) {
	where, args := itemFilterClause(filter)
	query := `SELECT COUNT(*) FROM items` + where

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, mapError(err)
	}

	return count, nil
}

// Update writes the non-aggregate fields of an item. The aggregate columns
// are left alone so a concurrent recomputation is never overwritten.
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE items
		SET name = $1, category = $2, description = $3, image_url = $4, updated_at = $5
		WHERE id = $6
		RETURNING average_rating, total_reviews, created_at
	`

	item.UpdatedAt = time.Now().UTC()

	err := r.db.QueryRowxContext(
		ctx,
		query,
		item.Name,
		item.Category,
		item.Description,
		item.ImageURL,
		item.UpdatedAt,
		item.ID,
	).Scan(&item.AverageRating, &item.TotalReviews, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return mapError(err)
	}

	return nil
}

// Delete removes an item. Reviews are not cascaded; the foreign key makes
// the delete fail with ErrConflict while any review references the item.
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Categories returns the distinct categories in alphabetical order
func (r *ItemRepository) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := r.db.SelectContext(ctx, &categories, `SELECT DISTINCT category FROM items ORDER BY category`)
	if err != nil {
		return nil, mapError(err)
	}
	return categories, nil
}

func itemFilterClause(filter domain.ItemFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
