//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/reviewhub/internal/aggregate"
	"github.com/Pesokrava/reviewhub/internal/config"
	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/database"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/reviewhub/internal/repository/cache"
	"github.com/Pesokrava/reviewhub/internal/repository/postgres"
	"github.com/Pesokrava/reviewhub/internal/usecase/review"
	"github.com/Pesokrava/reviewhub/internal/worker"
)

func TestAggregateWorker_RepairsDrift(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.New(cfg.Env)

	db, err := database.Connect(context.Background(), cfg, 5, 2*time.Second, log)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.RunMigrations(db))

	nc, err := nats.Connect(cfg.NATS.URL)
	require.NoError(t, err)
	defer nc.Close()

	runner := aggregate.NewRunner(postgres.NewTxManager(db), aggregate.NewEngine(log))
	aggregateWorker := worker.NewAggregateWorker(runner, cacheRepo.NoopCache{}, log)
	aggregateWorker.SetDebounceWindow(200 * time.Millisecond)

	sub, err := nc.Subscribe(review.EventsSubject+".drift-test", func(msg *nats.Msg) {
		_ = aggregateWorker.HandleEvent(msg.Data)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ctx := context.Background()
	items := postgres.NewItemRepository(db)

	it := &domain.Item{Name: "Drifted Item", Category: "integration"}
	require.NoError(t, items.Create(ctx, it))
	defer func() {
		_, _ = db.Exec(`DELETE FROM reviews WHERE item_id = $1`, it.ID)
		_, _ = db.Exec(`DELETE FROM items WHERE id = $1`, it.ID)
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = aggregateWorker.Shutdown(shutdownCtx)
	}()

	// Rows written behind the application's back leave the aggregate stale
	for _, rating := range []int{5, 4, 5, 3, 5} {
		_, err := db.Exec(
			`INSERT INTO reviews (item_id, user_id, rating, title, created_at, updated_at) VALUES ($1, $2, $3, $4, NOW(), NOW())`,
			it.ID, uuid.NewString(), rating, "Imported",
		)
		require.NoError(t, err)
	}

	stale, err := items.GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Zero(t, stale.TotalReviews)

	for i := 0; i < 10; i++ {
		data, err := json.Marshal(review.ReviewEvent{
			EventID:   uuid.New(),
			EventType: review.EventCreated,
			Timestamp: time.Now(),
			ItemID:    it.ID,
		})
		require.NoError(t, err)
		require.NoError(t, nc.Publish(review.EventsSubject+".drift-test", data))
	}
	require.NoError(t, nc.Flush())

	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, aggregateWorker.PendingCount(), 1, "events for one item should collapse")

	require.Eventually(t, func() bool {
		repaired, err := items.GetByID(ctx, it.ID)
		return err == nil && repaired.TotalReviews == 5
	}, 5*time.Second, 100*time.Millisecond)

	repaired, err := items.GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.4, repaired.AverageRating)
}
