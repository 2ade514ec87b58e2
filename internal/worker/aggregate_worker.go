package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Pesokrava/reviewhub/internal/aggregate"
	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
	"github.com/Pesokrava/reviewhub/internal/usecase/review"
)

const (
	// DefaultDebounceWindow collects events for the same item into one pass
	DefaultDebounceWindow = 1 * time.Second

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
)

// Recomputer recomputes one item's aggregate under its lock
type Recomputer interface {
	RecomputeItem(ctx context.Context, itemID int64) (aggregate.Aggregate, error)
}

// Invalidator drops cached copies of an item
type Invalidator interface {
	InvalidateItem(ctx context.Context, itemID int64) error
}

// AggregateWorker re-runs recomputation for items named in review events.
// Mutations already recompute synchronously; this pass repairs an item whose
// commit outcome was unknown to the caller.
type AggregateWorker struct {
	recomputer Recomputer
	cache      Invalidator
	logger     *logger.Logger
	debounce   time.Duration

	mu             sync.Mutex
	pendingUpdates map[int64]*pendingUpdate
	shuttingDown   bool
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

type pendingUpdate struct {
	itemID    int64
	timestamp time.Time
	timer     *time.Timer
}

// NewAggregateWorker creates a new aggregate worker. cache may be nil.
func NewAggregateWorker(recomputer Recomputer, cache Invalidator, log *logger.Logger) *AggregateWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &AggregateWorker{
		recomputer:     recomputer,
		cache:          cache,
		logger:         log,
		debounce:       DefaultDebounceWindow,
		pendingUpdates: make(map[int64]*pendingUpdate),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// SetDebounceWindow changes the per-item debounce window
func (w *AggregateWorker) SetDebounceWindow(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// HandleEvent decodes a review event and schedules its item
func (w *AggregateWorker) HandleEvent(data []byte) error {
	var event review.ReviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.ItemID <= 0 {
		return fmt.Errorf("event %s has no item id", event.EventID)
	}

	w.logger.WithFields(logger.Fields{
		"event_id":   event.EventID.String(),
		"event_type": event.EventType,
		"item_id":    event.ItemID,
	}).Debug("Received review event")

	w.scheduleUpdate(event.ItemID, event.Timestamp)
	return nil
}

// scheduleUpdate debounces events per item. An event older than the one
// already pending is dropped; a newer one restarts the window.
func (w *AggregateWorker) scheduleUpdate(itemID int64, timestamp time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.shuttingDown {
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	}

	if existing, found := w.pendingUpdates[itemID]; found {
		if timestamp.Before(existing.timestamp) {
			w.logger.WithFields(logger.Fields{
				"item_id":     itemID,
				"existing_ts": existing.timestamp,
				"event_ts":    timestamp,
			}).Debug("Ignoring stale event")
			return
		}

		// A timer that already fired has taken its own wait group slot
		if existing.timer.Stop() {
			w.wg.Done()
		}
	}

	w.wg.Add(1)
	update := &pendingUpdate{
		itemID:    itemID,
		timestamp: timestamp,
	}
	update.timer = time.AfterFunc(w.debounce, func() {
		w.processUpdate(update)
	})
	w.pendingUpdates[itemID] = update
}

// processUpdate recomputes the item, retrying transient failures
func (w *AggregateWorker) processUpdate(update *pendingUpdate) {
	defer w.wg.Done()

	w.mu.Lock()
	if w.pendingUpdates[update.itemID] == update {
		delete(w.pendingUpdates, update.itemID)
	}
	w.mu.Unlock()

	itemID := update.itemID
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(logger.Fields{
				"item_id":    itemID,
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying aggregate recomputation")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}
			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, 5*time.Second)
		agg, err := w.recomputer.RecomputeItem(ctx, itemID)
		cancel()

		if err == nil {
			if w.cache != nil {
				if err := w.cache.InvalidateItem(w.ctx, itemID); err != nil {
					w.logger.Warnf("Failed to invalidate cache for item %d: %v", itemID, err)
				}
			}
			w.logger.WithFields(logger.Fields{
				"item_id":        itemID,
				"average_rating": agg.AverageRating,
				"total_reviews":  agg.TotalReviews,
			}).Info("Item aggregate reconciled")
			return
		}

		if errors.Is(err, domain.ErrNotFound) {
			w.logger.WithFields(logger.Fields{
				"item_id": itemID,
			}).Info("Item no longer exists, skipping reconciliation")
			return
		}

		lastErr = err
		var cerr *domain.ConsistencyError
		if errors.As(err, &cerr) || !isRetryable(err) {
			break
		}
	}

	w.logger.WithFields(logger.Fields{
		"item_id":     itemID,
		"max_retries": maxRetries,
	}).Error("Aggregate reconciliation failed", lastErr)
}

func isRetryable(err error) bool {
	return errors.Is(err, domain.ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// Shutdown stops accepting events, cancels pending timers and waits for
// in-flight recomputations
func (w *AggregateWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down aggregate worker...")

	w.mu.Lock()
	w.shuttingDown = true
	pendingCount := 0
	for _, update := range w.pendingUpdates {
		if update.timer.Stop() {
			w.wg.Done()
			pendingCount++
		}
	}
	w.pendingUpdates = make(map[int64]*pendingUpdate)
	w.mu.Unlock()

	w.cancel()

	w.logger.WithFields(logger.Fields{
		"cancelled_updates": pendingCount,
	}).Info("Cancelled pending updates")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All in-flight updates completed")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// PendingCount returns the number of items waiting for their debounce window
func (w *AggregateWorker) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingUpdates)
}
