package handler

import (
	"net/http"

	"github.com/Pesokrava/reviewhub/internal/delivery/http/request"
	"github.com/Pesokrava/reviewhub/internal/delivery/http/response"
	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
	"github.com/Pesokrava/reviewhub/internal/usecase/item"
)

// ItemHandler handles HTTP requests for items
type ItemHandler struct {
	service *item.Service
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(service *item.Service, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: service,
		logger:  log,
	}
}

// CreateItemRequest represents the request body for creating an item
type CreateItemRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// UpdateItemRequest represents the request body for updating an item.
// Omitted fields keep their values; aggregates cannot be set.
type UpdateItemRequest struct {
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// Create handles POST /api/v1/items
// @Summary Create a new item
// @Description Create an item. Its average rating and review count start at zero.
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body CreateItemRequest true "Item details"
// @Success 201 {object} map[string]interface{} "Item created successfully"
// @Failure 400 {object} response.ErrorBody "Validation failed"
// @Failure 401 {object} response.ErrorBody "Missing or invalid token"
// @Router /items [post]
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		badRequest(w, domain.CodeInvalidBody, "Invalid request body")
		return
	}

	it := &domain.Item{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}

	if err := h.service.Create(r.Context(), it); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, it)
}

// GetByID handles GET /api/v1/items/{id}
// @Summary Get an item by ID
// @Description Get an item with its persisted average rating and review count. Results are cached.
// @Tags Items
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} map[string]interface{} "Item details"
// @Failure 400 {object} response.ErrorBody "Invalid item ID"
// @Failure 404 {object} response.ErrorBody "Item not found"
// @Router /items/{id} [get]
func (h *ItemHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetInt64Param(r, "id")
	if err != nil {
		badRequest(w, domain.CodeInvalidID, "Invalid item ID")
		return
	}

	it, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, it)
}

// List handles GET /api/v1/items
// @Summary List items
// @Description Get a paginated, filtered list of items, newest first.
// @Tags Items
// @Produce json
// @Param limit query int false "Number of items per page (max 100)" default(10)
// @Param offset query int false "Number of items to skip" default(0)
// @Param search query string false "Case-insensitive match on name and description"
// @Param category query string false "Exact category"
// @Success 200 {object} map[string]interface{} "Paginated list of items"
// @Router /items [get]
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := request.GetPaginationParams(r, item.DefaultLimit, item.MaxLimit)

	filter := domain.ItemFilter{
		Limit:    limit,
		Offset:   offset,
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Paginated(w, items, total, limit, offset)
}

// Update handles PUT /api/v1/items/{id}
// @Summary Update an item
// @Description Update an item's descriptive fields. Never changes its rating aggregate.
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Item ID"
// @Param item body UpdateItemRequest true "Fields to change"
// @Success 200 {object} map[string]interface{} "Item updated successfully"
// @Failure 400 {object} response.ErrorBody "Validation failed"
// @Failure 404 {object} response.ErrorBody "Item not found"
// @Router /items/{id} [put]
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetInt64Param(r, "id")
	if err != nil {
		badRequest(w, domain.CodeInvalidID, "Invalid item ID")
		return
	}

	var req UpdateItemRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		badRequest(w, domain.CodeInvalidBody, "Invalid request body")
		return
	}

	updated, err := h.service.Update(r.Context(), id, domain.ItemPatch{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, updated)
}

// Delete handles DELETE /api/v1/items/{id}
// @Summary Delete an item
// @Description Delete an item that has no reviews.
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param id path int true "Item ID"
// @Success 204 "Item deleted successfully"
// @Failure 404 {object} response.ErrorBody "Item not found"
// @Failure 409 {object} response.ErrorBody "Item still has reviews"
// @Router /items/{id} [delete]
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetInt64Param(r, "id")
	if err != nil {
		badRequest(w, domain.CodeInvalidID, "Invalid item ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Categories handles GET /api/v1/categories
// @Summary List categories
// @Tags Items
// @Produce json
// @Success 200 {object} map[string]interface{} "Distinct category names"
// @Router /categories [get]
func (h *ItemHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, categories)
}
