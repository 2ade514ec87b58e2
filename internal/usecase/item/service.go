package item

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/reviewhub/internal/pkg/validator"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Cache is the read cache for items
type Cache interface {
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
	SetItem(ctx context.Context, item *domain.Item) error
	GetItemList(ctx context.Context, filter domain.ItemFilter) ([]*domain.Item, int, error)
	SetItemList(ctx context.Context, filter domain.ItemFilter, items []*domain.Item, total int) error
	InvalidateItem(ctx context.Context, id int64) error
	InvalidateItemLists(ctx context.Context) error
}

// Service handles item reads and writes of non-aggregate fields. It never
// touches averageRating or totalReviews.
type Service struct {
	repo     domain.ItemRepository
	cache    Cache
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new item service
func NewService(repo domain.ItemRepository, cache Cache, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		validate: pkgvalidator.Get(),
		logger:   log,
	}
}

// NormalizeFilter applies the paging defaults and caps
func NormalizeFilter(f domain.ItemFilter) domain.ItemFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	return f
}

// Create creates a new item with an empty aggregate
func (s *Service) Create(ctx context.Context, item *domain.Item) error {
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if err := s.validateItem(item); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.logger.Error("Failed to create item", err)
		return err
	}

	if err := s.cache.InvalidateItemLists(ctx); err != nil {
		s.logger.Warnf("Failed to invalidate item lists: %v", err)
	}

	s.logger.WithFields(logger.Fields{
		"item_id":  item.ID,
		"name":     item.Name,
		"category": item.Category,
	}).Info("Item created successfully")

	return nil
}

// GetByID retrieves an item by ID, from cache when possible
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	if id <= 0 {
		return nil, domain.NewValidationError(domain.CodeInvalidID, "id", "id must be a positive integer")
	}

	if item, err := s.cache.GetItem(ctx, id); err == nil {
		return item, nil
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Item not found: %d", id)
		} else {
			s.logger.Error("Failed to get item", err)
		}
		return nil, err
	}

	if err := s.cache.SetItem(ctx, item); err != nil {
		s.logger.Warnf("Failed to cache item %d: %v", id, err)
	}

	return item, nil
}

// List retrieves a filtered page of items and the total match count
func (s *Service) List(ctx context.Context, filter domain.ItemFilter) ([]*domain.Item, int, error) {
	filter = NormalizeFilter(filter)

	if items, total, err := s.cache.GetItemList(ctx, filter); err == nil {
		return items, total, nil
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list items", err)
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count items", err)
		return nil, 0, err
	}

	if err := s.cache.SetItemList(ctx, filter, items, total); err != nil {
		s.logger.Warnf("Failed to cache item list: %v", err)
	}

	return items, total, nil
}

// Update changes the non-aggregate fields of an item
func (s *Service) Update(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	if id <= 0 {
		return nil, domain.NewValidationError(domain.CodeInvalidID, "id", "id must be a positive integer")
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(item)
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if err := s.validateItem(item); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, item); err != nil {
		s.logger.Error("Failed to update item", err)
		return nil, err
	}

	if err := s.cache.InvalidateItem(ctx, id); err != nil {
		s.logger.Warnf("Failed to invalidate cache for item %d: %v", id, err)
	}

	s.logger.WithFields(logger.Fields{
		"item_id": item.ID,
		"name":    item.Name,
	}).Info("Item updated successfully")

	return item, nil
}

// Delete removes an item that has no reviews
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.NewValidationError(domain.CodeInvalidID, "id", "id must be a positive integer")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("item %d still has reviews: %w", id, domain.ErrConflict)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to delete item", err)
		}
		return err
	}

	if err := s.cache.InvalidateItem(ctx, id); err != nil {
		s.logger.Warnf("Failed to invalidate cache for item %d: %v", id, err)
	}

	s.logger.WithFields(logger.Fields{
		"item_id": id,
	}).Info("Item deleted successfully")

	return nil
}

// Categories returns the distinct item categories
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		s.logger.Error("Failed to list categories", err)
		return nil, err
	}
	return categories, nil
}

func (s *Service) validateItem(item *domain.Item) error {
	if item.Name == "" {
		return domain.NewValidationError(domain.CodeMissingName, "name", "name is required")
	}
	if item.Category == "" {
		return domain.NewValidationError(domain.CodeMissingCategory, "category", "category is required")
	}
	if err := s.validate.Struct(item); err != nil {
		field := pkgvalidator.FirstInvalidField(err)
		return domain.NewValidationError(domain.CodeInvalidBody, field, fmt.Sprintf("invalid value for %s", field))
	}
	return nil
}
