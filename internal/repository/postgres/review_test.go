package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/reviewhub/internal/domain"
)

var reviewColumnNames = []string{"id", "item_id", "user_id", "rating", "title", "comment", "created_at", "updated_at"}

func TestReviewRepository_GetByID(t *testing.T) {
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReviewRepository(db)

		mock.ExpectQuery(`FROM reviews WHERE id = \$1`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(reviewColumnNames).AddRow(7, 1, "alice", 4, "Good", "solid", now, now))

		review, err := repo.GetByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), review.ItemID)
		assert.Equal(t, "alice", review.UserID)
		assert.Equal(t, 4, review.Rating)
		require.NotNil(t, review.Comment)
		assert.Equal(t, "solid", *review.Comment)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReviewRepository(db)

		mock.ExpectQuery(`FROM reviews WHERE id = \$1`).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows(reviewColumnNames))

		_, err := repo.GetByID(context.Background(), 8)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestReviewRepository_ListByItemID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM reviews\s+WHERE item_id = \$1\s+ORDER BY created_at DESC, id DESC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs(int64(1), 20, 0).
		WillReturnRows(sqlmock.NewRows(reviewColumnNames).
			AddRow(2, 1, "bob", 5, "Great", nil, now, now).
			AddRow(1, 1, "alice", 3, "Fine", nil, now.Add(-time.Minute), now.Add(-time.Minute)))

	reviews, err := repo.ListByItemID(context.Background(), 1, 20, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, int64(2), reviews[0].ID)
	assert.Nil(t, reviews[0].Comment)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM reviews WHERE item_id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByItemID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
