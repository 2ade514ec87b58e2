package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/reviewhub/internal/aggregate"
	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
	"github.com/Pesokrava/reviewhub/internal/repository/memory"
	"github.com/Pesokrava/reviewhub/internal/usecase/review"
)

const testWindow = 50 * time.Millisecond

type fakeRecomputer struct {
	mu    sync.Mutex
	calls map[int64]int
	errs  []error
}

func newFakeRecomputer(errs ...error) *fakeRecomputer {
	return &fakeRecomputer{calls: make(map[int64]int), errs: errs}
}

func (f *fakeRecomputer) RecomputeItem(ctx context.Context, itemID int64) (aggregate.Aggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[itemID]++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return aggregate.Aggregate{}, err
		}
	}
	return aggregate.Aggregate{AverageRating: 4, TotalReviews: 1}, nil
}

func (f *fakeRecomputer) callsFor(itemID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[itemID]
}

type fakeInvalidator struct {
	mu  sync.Mutex
	ids []int64
}

func (f *fakeInvalidator) InvalidateItem(ctx context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, itemID)
	return nil
}

func (f *fakeInvalidator) invalidated() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.ids...)
}

func eventData(t *testing.T, itemID int64, ts time.Time) []byte {
	t.Helper()
	data, err := json.Marshal(review.ReviewEvent{
		EventID:   uuid.New(),
		EventType: review.EventCreated,
		Timestamp: ts,
		ItemID:    itemID,
	})
	require.NoError(t, err)
	return data
}

func newTestWorker(rec Recomputer, inv Invalidator) *AggregateWorker {
	w := NewAggregateWorker(rec, inv, logger.New("test"))
	w.SetDebounceWindow(testWindow)
	return w
}

func shutdown(t *testing.T, w *AggregateWorker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Shutdown(ctx))
}

func TestAggregateWorker_HandleEvent(t *testing.T) {
	rec := newFakeRecomputer()
	inv := &fakeInvalidator{}
	w := newTestWorker(rec, inv)

	require.NoError(t, w.HandleEvent(eventData(t, 7, time.Now())))
	assert.Equal(t, 1, w.PendingCount())

	assert.Eventually(t, func() bool { return rec.callsFor(7) == 1 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return w.PendingCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return len(inv.invalidated()) == 1 }, time.Second, 10*time.Millisecond)

	shutdown(t, w)
}

func TestAggregateWorker_HandleEvent_InvalidPayload(t *testing.T) {
	w := newTestWorker(newFakeRecomputer(), nil)
	defer shutdown(t, w)

	err := w.HandleEvent([]byte(`{invalid json}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")

	err = w.HandleEvent(eventData(t, 0, time.Now()))
	assert.Error(t, err)
	assert.Equal(t, 0, w.PendingCount())
}

func TestAggregateWorker_Debounce(t *testing.T) {
	rec := newFakeRecomputer()
	w := newTestWorker(rec, nil)

	now := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, w.HandleEvent(eventData(t, 1, now.Add(time.Duration(i)*time.Millisecond))))
	}
	require.NoError(t, w.HandleEvent(eventData(t, 2, now)))
	assert.Equal(t, 2, w.PendingCount())

	assert.Eventually(t, func() bool { return w.PendingCount() == 0 }, time.Second, 10*time.Millisecond)
	shutdown(t, w)

	assert.Equal(t, 1, rec.callsFor(1))
	assert.Equal(t, 1, rec.callsFor(2))
}

func TestAggregateWorker_StaleEventDropped(t *testing.T) {
	rec := newFakeRecomputer()
	w := newTestWorker(rec, nil)

	now := time.Now()
	require.NoError(t, w.HandleEvent(eventData(t, 3, now)))
	require.NoError(t, w.HandleEvent(eventData(t, 3, now.Add(-time.Minute))))
	assert.Equal(t, 1, w.PendingCount())

	assert.Eventually(t, func() bool { return rec.callsFor(3) == 1 }, time.Second, 10*time.Millisecond)
	shutdown(t, w)
	assert.Equal(t, 1, rec.callsFor(3))
}

func TestAggregateWorker_Retries(t *testing.T) {
	t.Run("transient errors are retried", func(t *testing.T) {
		rec := newFakeRecomputer(domain.ErrTransient, domain.ErrTransient)
		w := newTestWorker(rec, nil)

		require.NoError(t, w.HandleEvent(eventData(t, 4, time.Now())))
		assert.Eventually(t, func() bool { return rec.callsFor(4) == 3 }, 2*time.Second, 10*time.Millisecond)
		shutdown(t, w)
	})

	t.Run("missing item is skipped", func(t *testing.T) {
		rec := newFakeRecomputer(domain.ErrNotFound)
		w := newTestWorker(rec, nil)

		require.NoError(t, w.HandleEvent(eventData(t, 5, time.Now())))
		assert.Eventually(t, func() bool { return rec.callsFor(5) == 1 }, time.Second, 10*time.Millisecond)
		shutdown(t, w)
		assert.Equal(t, 1, rec.callsFor(5))
	})

	t.Run("consistency error is not retried", func(t *testing.T) {
		rec := newFakeRecomputer(&domain.ConsistencyError{ItemID: 6})
		w := newTestWorker(rec, nil)

		require.NoError(t, w.HandleEvent(eventData(t, 6, time.Now())))
		assert.Eventually(t, func() bool { return rec.callsFor(6) == 1 }, time.Second, 10*time.Millisecond)
		shutdown(t, w)
		assert.Equal(t, 1, rec.callsFor(6))
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		rec := newFakeRecomputer(errors.New("boom"))
		w := newTestWorker(rec, nil)

		require.NoError(t, w.HandleEvent(eventData(t, 8, time.Now())))
		assert.Eventually(t, func() bool { return rec.callsFor(8) == 1 }, time.Second, 10*time.Millisecond)
		shutdown(t, w)
		assert.Equal(t, 1, rec.callsFor(8))
	})
}

func TestAggregateWorker_Shutdown(t *testing.T) {
	rec := newFakeRecomputer()
	w := NewAggregateWorker(rec, nil, logger.New("test"))
	w.SetDebounceWindow(time.Hour)

	require.NoError(t, w.HandleEvent(eventData(t, 1, time.Now())))
	require.NoError(t, w.HandleEvent(eventData(t, 2, time.Now())))
	assert.Equal(t, 2, w.PendingCount())

	shutdown(t, w)
	assert.Equal(t, 0, w.PendingCount())
	assert.Equal(t, 0, rec.callsFor(1))

	// Events after shutdown are ignored
	require.NoError(t, w.HandleEvent(eventData(t, 3, time.Now())))
	assert.Equal(t, 0, w.PendingCount())
}

func TestAggregateWorker_RepairsDriftedAggregate(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	item := &domain.Item{Name: "Kettle", Category: "kitchen"}
	require.NoError(t, store.Items().Create(ctx, item))

	// Reviews 5 and 3 land, but the aggregate is left wrong
	err := store.WithItemLock(ctx, item.ID, func(ctx context.Context, tx domain.ReviewTx) error {
		for _, rating := range []int{5, 3} {
			if err := tx.InsertReview(ctx, &domain.Review{ItemID: item.ID, UserID: "u", Rating: rating, Title: "t"}); err != nil {
				return err
			}
		}
		return tx.SetAggregate(ctx, item.ID, 1, 1, time.Now())
	})
	require.NoError(t, err)

	runner := aggregate.NewRunner(store, aggregate.NewEngine(logger.New("test")))
	w := newTestWorker(runner, nil)

	require.NoError(t, w.HandleEvent(eventData(t, item.ID, time.Now())))
	assert.Eventually(t, func() bool {
		got, err := store.Items().GetByID(ctx, item.ID)
		return err == nil && got.TotalReviews == 2 && got.AverageRating == 4
	}, time.Second, 10*time.Millisecond)

	shutdown(t, w)
}
