package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/reviewhub/internal/aggregate"
	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
)

// EventsSubject is the subject review events are published on
const EventsSubject = "reviews.events"

const (
	EventCreated = "review.created"
	EventUpdated = "review.updated"
	EventDeleted = "review.deleted"
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Cache is the part of the read cache review mutations must keep fresh
type Cache interface {
	GetReviewsList(ctx context.Context, itemID int64, limit, offset int) ([]*domain.Review, int, error)
	SetReviewsList(ctx context.Context, itemID int64, limit, offset int, reviews []*domain.Review, total int) error
	InvalidateItem(ctx context.Context, itemID int64) error
}

// ReviewEvent is published after a review mutation has committed
type ReviewEvent struct {
	EventID   uuid.UUID      `json:"event_id"`
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	ItemID    int64          `json:"item_id"`
	Review    *domain.Review `json:"review"`
}

// RetryPolicy bounds how often a unit of work is retried on transient
// storage failures
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy is used when no policy is configured
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 50 * time.Millisecond}

// Service validates and applies review mutations. Each mutation and the
// recomputation of the affected item's aggregate run in one transaction
// holding the item's lock.
type Service struct {
	reviews   domain.ReviewRepository
	locker    domain.ItemLocker
	engine    *aggregate.Engine
	cache     Cache
	publisher EventPublisher
	retry     RetryPolicy
	logger    *logger.Logger

	publishes sync.WaitGroup
}

// NewService creates a new review service. publisher may be nil when
// events are disabled.
func NewService(
	reviews domain.ReviewRepository,
	locker domain.ItemLocker,
	engine *aggregate.Engine,
	cache Cache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		reviews:   reviews,
		locker:    locker,
		engine:    engine,
		cache:     cache,
		publisher: publisher,
		retry:     DefaultRetryPolicy,
		logger:    log,
	}
}

// SetRetryPolicy replaces the transient-failure retry policy
func (s *Service) SetRetryPolicy(p RetryPolicy) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	s.retry = p
}

// Create validates and inserts a review, then recomputes the item aggregate.
// On success review holds the persisted row.
func (s *Service) Create(ctx context.Context, review *domain.Review) error {
	review.UserID = strings.TrimSpace(review.UserID)
	review.Title = strings.TrimSpace(review.Title)
	if err := validateNew(review); err != nil {
		return err
	}

	var agg aggregate.Aggregate
	err := s.withRetry(ctx, "create review", func() error {
		return s.locker.WithItemLock(ctx, review.ItemID, func(ctx context.Context, tx domain.ReviewTx) error {
			if err := tx.InsertReview(ctx, review); err != nil {
				return fmt.Errorf("failed to insert review: %w", err)
			}
			var err error
			agg, err = s.engine.Recompute(ctx, tx, review.ItemID)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("item %d: %w", review.ItemID, domain.ErrNotFound)
		}
		return s.fail("create review", err)
	}

	s.afterCommit(ctx, EventCreated, review)

	s.logger.WithFields(logger.Fields{
		"review_id":      review.ID,
		"item_id":        review.ItemID,
		"rating":         review.Rating,
		"average_rating": agg.AverageRating,
		"total_reviews":  agg.TotalReviews,
	}).Info("Review created successfully")

	return nil
}

// Update applies a partial update. The aggregate is recomputed only when the
// patch carries a rating.
func (s *Service) Update(ctx context.Context, id int64, patch domain.ReviewPatch) (*domain.Review, error) {
	if id <= 0 {
		return nil, domain.NewValidationError(domain.CodeInvalidID, "id", "id must be a positive integer")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	existing, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("review %d: %w", id, domain.ErrNotFound)
		}
		return nil, s.fail("update review", err)
	}

	var updated *domain.Review
	err = s.withRetry(ctx, "update review", func() error {
		return s.locker.WithItemLock(ctx, existing.ItemID, func(ctx context.Context, tx domain.ReviewTx) error {
			current, err := tx.GetReview(ctx, id)
			if err != nil {
				return err
			}

			patch.Apply(current)
			if err := tx.UpdateReview(ctx, current); err != nil {
				return fmt.Errorf("failed to update review: %w", err)
			}

			if patch.AffectsAggregate() {
				if _, err := s.engine.Recompute(ctx, tx, current.ItemID); err != nil {
					return err
				}
			}

			updated = current
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("review %d: %w", id, domain.ErrNotFound)
		}
		return nil, s.fail("update review", err)
	}

	s.afterCommit(ctx, EventUpdated, updated)

	s.logger.WithFields(logger.Fields{
		"review_id":  updated.ID,
		"item_id":    updated.ItemID,
		"rating":     updated.Rating,
		"recomputed": patch.AffectsAggregate(),
	}).Info("Review updated successfully")

	return updated, nil
}

// Delete removes a review and recomputes its item's aggregate. It returns
// the deleted review.
func (s *Service) Delete(ctx context.Context, id int64) (*domain.Review, error) {
	if id <= 0 {
		return nil, domain.NewValidationError(domain.CodeInvalidID, "id", "id must be a positive integer")
	}

	existing, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("review %d: %w", id, domain.ErrNotFound)
		}
		return nil, s.fail("delete review", err)
	}

	err = s.withRetry(ctx, "delete review", func() error {
		return s.locker.WithItemLock(ctx, existing.ItemID, func(ctx context.Context, tx domain.ReviewTx) error {
			if err := tx.DeleteReview(ctx, id); err != nil {
				return err
			}
			_, err := s.engine.Recompute(ctx, tx, existing.ItemID)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("review %d: %w", id, domain.ErrNotFound)
		}
		return nil, s.fail("delete review", err)
	}

	s.afterCommit(ctx, EventDeleted, existing)

	s.logger.WithFields(logger.Fields{
		"review_id": id,
		"item_id":   existing.ItemID,
	}).Info("Review deleted successfully")

	return existing, nil
}

// GetByID retrieves a review by ID
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	if id <= 0 {
		return nil, domain.NewValidationError(domain.CodeInvalidID, "id", "id must be a positive integer")
	}

	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found: %d", id)
			return nil, err
		}
		s.logger.Error("Failed to get review", err)
		return nil, err
	}

	return review, nil
}

// ListByItem retrieves a page of an item's reviews, newest first
func (s *Service) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*domain.Review, int, error) {
	if itemID <= 0 {
		return nil, 0, domain.NewValidationError(domain.CodeInvalidItemID, "itemId", "itemId must be a positive integer")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	reviews, total, err := s.cache.GetReviewsList(ctx, itemID, limit, offset)
	if err == nil {
		s.logger.Debugf("Cache hit for item %d reviews (limit=%d, offset=%d)", itemID, limit, offset)
		return reviews, total, nil
	}

	reviews, err = s.reviews.ListByItemID(ctx, itemID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list reviews by item ID", err)
		return nil, 0, err
	}

	total, err = s.reviews.CountByItemID(ctx, itemID)
	if err != nil {
		s.logger.Error("Failed to count reviews", err)
		return nil, 0, err
	}

	if err := s.cache.SetReviewsList(ctx, itemID, limit, offset, reviews, total); err != nil {
		s.logger.Warnf("Failed to cache reviews for item %d: %v", itemID, err)
	}

	return reviews, total, nil
}

// Wait blocks until background event publishes have finished
func (s *Service) Wait() {
	s.publishes.Wait()
}

func validateNew(r *domain.Review) error {
	if r.ItemID <= 0 {
		return domain.NewValidationError(domain.CodeInvalidItemID, "itemId", "itemId must be a positive integer")
	}
	if r.UserID == "" {
		return domain.NewValidationError(domain.CodeInvalidUserID, "userId", "userId is required")
	}
	if !domain.ValidRating(r.Rating) {
		return domain.NewValidationError(domain.CodeInvalidRating, "rating", "rating must be an integer between 1 and 5")
	}
	if r.Title == "" {
		return domain.NewValidationError(domain.CodeMissingTitle, "title", "title is required")
	}
	return nil
}

func validatePatch(p domain.ReviewPatch) error {
	if p.Rating != nil && !domain.ValidRating(*p.Rating) {
		return domain.NewValidationError(domain.CodeInvalidRating, "rating", "rating must be an integer between 1 and 5")
	}
	if p.Title != nil && *p.Title == "" {
		return domain.NewValidationError(domain.CodeInvalidTitle, "title", "title must not be empty")
	}
	return nil
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or
// the attempts run out. fn must be a complete unit of work so that a retry
// starts from committed state.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := s.retry.Backoff
	var err error

	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			txRetries.WithLabelValues(op).Inc()
			s.logger.WithFields(logger.Fields{
				"op":         op,
				"attempt":    attempt,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying transaction after transient failure")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}

		err = fn()
		if err == nil || !errors.Is(err, domain.ErrTransient) {
			return err
		}
	}

	return err
}

// fail classifies an error returned by a mutation. Domain errors pass
// through; anything else is a storage failure.
func (s *Service) fail(op string, err error) error {
	var (
		verr *domain.ValidationError
		cerr *domain.ConsistencyError
	)
	switch {
	case errors.As(err, &verr),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &cerr):
		s.logger.WithFields(logger.Fields{
			"op":      op,
			"item_id": cerr.ItemID,
		}).Error("Aggregate consistency violated", err)
		return err
	}

	s.logger.Error(fmt.Sprintf("Failed to %s", op), err)
	return &domain.StorageError{Op: op, Err: err}
}

// afterCommit drops cached copies of the item and publishes the event
func (s *Service) afterCommit(ctx context.Context, eventType string, review *domain.Review) {
	// Stale cache would show the aggregate from before this mutation
	if err := s.cache.InvalidateItem(ctx, review.ItemID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for item %d: %v", review.ItemID, err)
	}

	s.publishEvent(eventType, review)
}

// publishEvent publishes a review event in the background
func (s *Service) publishEvent(eventType string, review *domain.Review) {
	if s.publisher == nil {
		return
	}

	event := ReviewEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		ItemID:    review.ItemID,
		Review:    review,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %d", review.ID)
		return
	}

	s.publishes.Add(1)
	go func() {
		defer s.publishes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.publisher.Publish(ctx, EventsSubject, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %d", review.ID)
		}
	}()
}
