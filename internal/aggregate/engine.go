package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
)

// Store is the part of a locked review transaction the engine needs
type Store interface {
	RatingStats(ctx context.Context, itemID int64) (sum int64, count int, err error)
	SetAggregate(ctx context.Context, itemID int64, averageRating float64, totalReviews int, updatedAt time.Time) error
}

// Engine recomputes item aggregates from the full review population
type Engine struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewEngine creates a new recomputation engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		logger: log,
		now:    time.Now,
	}
}

// Recompute reads the current rating stats of the item and writes the
// resulting aggregate back. It must run inside the item's lock so the read
// and the write see the same review population.
func (e *Engine) Recompute(ctx context.Context, store Store, itemID int64) (Aggregate, error) {
	start := time.Now()
	defer func() {
		recomputeDuration.Observe(time.Since(start).Seconds())
	}()

	sum, count, err := store.RatingStats(ctx, itemID)
	if err != nil {
		recomputeTotal.WithLabelValues("error").Inc()
		return Aggregate{}, fmt.Errorf("failed to read rating stats: %w", err)
	}

	agg := Compute(sum, count)

	err = store.SetAggregate(ctx, itemID, agg.AverageRating, agg.TotalReviews, e.now())
	if errors.Is(err, domain.ErrNotFound) {
		recomputeTotal.WithLabelValues("missing_item").Inc()
		e.logger.WithFields(map[string]any{
			"item_id": itemID,
		}).Error("Aggregate target item does not exist", err)
		return Aggregate{}, &domain.ConsistencyError{ItemID: itemID}
	}
	if err != nil {
		recomputeTotal.WithLabelValues("error").Inc()
		return Aggregate{}, fmt.Errorf("failed to write item aggregate: %w", err)
	}

	recomputeTotal.WithLabelValues("ok").Inc()
	e.logger.WithFields(map[string]any{
		"item_id":        itemID,
		"average_rating": agg.AverageRating,
		"total_reviews":  agg.TotalReviews,
	}).Debug("Recomputed item aggregate")

	return agg, nil
}

// Runner recomputes an item outside of a review mutation, taking the item
// lock itself. The aggregate worker uses it as a repair pass.
type Runner struct {
	locker domain.ItemLocker
	engine *Engine
}

// NewRunner creates a runner over the given locker
func NewRunner(locker domain.ItemLocker, engine *Engine) *Runner {
	return &Runner{
		locker: locker,
		engine: engine,
	}
}

// RecomputeItem recomputes one item's aggregate in its own transaction
func (r *Runner) RecomputeItem(ctx context.Context, itemID int64) (Aggregate, error) {
	var agg Aggregate
	err := r.locker.WithItemLock(ctx, itemID, func(ctx context.Context, tx domain.ReviewTx) error {
		var err error
		agg, err = r.engine.Recompute(ctx, tx, itemID)
		return err
	})
	return agg, err
}
