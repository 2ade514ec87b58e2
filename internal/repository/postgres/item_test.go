package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var itemColumnNames = []string{"id", "name", "category", "description", "image_url", "average_rating", "total_reviews", "created_at", "updated_at"}

func TestItemRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db)

	desc := "stainless"
	item := &domain.Item{Name: "Kettle", Category: "kitchen", Description: &desc}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO items (name, category, description, image_url, created_at, updated_at)")).
		WithArgs("Kettle", "kitchen", &desc, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "average_rating", "total_reviews"}).AddRow(11, 0.0, 0))

	require.NoError(t, repo.Create(context.Background(), item))

	assert.Equal(t, int64(11), item.ID)
	assert.Zero(t, item.TotalReviews)
	assert.False(t, item.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_GetByID(t *testing.T) {
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewItemRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM items WHERE id = $1")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(itemColumnNames).AddRow(3, "Kettle", "kitchen", nil, nil, 4.5, 2, now, now))

		item, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "Kettle", item.Name)
		assert.Equal(t, 4.5, item.AverageRating)
		assert.Equal(t, 2, item.TotalReviews)
		assert.Nil(t, item.Description)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewItemRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM items WHERE id = $1")).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(itemColumnNames))

		_, err := repo.GetByID(context.Background(), 4)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestItemRepository_ListAndCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db)
	now := time.Now().UTC()

	filter := domain.ItemFilter{Limit: 10, Offset: 20, Search: "50%_off", Category: "kitchen"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM items WHERE (name ILIKE $1 OR description ILIKE $1) AND category = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4")).
		WithArgs(`%50\%\_off%`, "kitchen", 10, 20).
		WillReturnRows(sqlmock.NewRows(itemColumnNames).
			AddRow(2, "B", "kitchen", nil, nil, 0.0, 0, now, now).
			AddRow(1, "A", "kitchen", nil, nil, 0.0, 0, now, now))

	items, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM items WHERE (name ILIKE $1 OR description ILIKE $1) AND category = $2")).
		WithArgs(`%50\%\_off%`, "kitchen").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(22))

	count, err := repo.Count(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 22, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_ListWithoutFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM items ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(itemColumnNames))

	items, err := repo.List(context.Background(), domain.ItemFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestItemRepository_Update(t *testing.T) {
	t.Run("keeps aggregate columns", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewItemRepository(db)
		created := time.Now().Add(-time.Hour).UTC()

		item := &domain.Item{ID: 5, Name: "Kettle 2", Category: "kitchen", AverageRating: 1, TotalReviews: 99}

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE items")).
			WithArgs("Kettle 2", "kitchen", nil, nil, sqlmock.AnyArg(), int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"average_rating", "total_reviews", "created_at"}).AddRow(3.5, 2, created))

		require.NoError(t, repo.Update(context.Background(), item))
		assert.Equal(t, 3.5, item.AverageRating)
		assert.Equal(t, 2, item.TotalReviews)
		assert.Equal(t, created, item.CreatedAt)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewItemRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE items")).
			WillReturnRows(sqlmock.NewRows([]string{"average_rating", "total_reviews", "created_at"}))

		err := repo.Update(context.Background(), &domain.Item{ID: 6, Name: "x", Category: "y"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestItemRepository_Delete(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "deleted",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM items WHERE id = $1")).
					WithArgs(int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM items WHERE id = $1")).
					WithArgs(int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "still referenced",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM items WHERE id = $1")).
					WithArgs(int64(1)).
					WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})
			},
			wantErr: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setup(mock)

			err := NewItemRepository(db).Delete(context.Background(), 1)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestItemRepository_Categories(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT category FROM items ORDER BY category")).
		WillReturnRows(sqlmock.NewRows([]string{"category"}).AddRow("kitchen").AddRow("office"))

	categories, err := NewItemRepository(db).Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kitchen", "office"}, categories)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "serialization failure", err: &pq.Error{Code: "40001"}, want: domain.ErrTransient},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: domain.ErrTransient},
		{name: "foreign key", err: &pq.Error{Code: "23503"}, want: domain.ErrConflict},
		{name: "check constraint", err: &pq.Error{Code: "23514"}, want: domain.ErrInvalidInput},
		{name: "bad connection", err: fmt.Errorf("query: %w", driver.ErrBadConn), want: domain.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}

	assert.NoError(t, mapError(nil))

	other := errors.New("syntax error")
	assert.Equal(t, other, mapError(other))
}
