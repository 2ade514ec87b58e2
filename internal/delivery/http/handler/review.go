package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Pesokrava/reviewhub/internal/delivery/http/middleware"
	"github.com/Pesokrava/reviewhub/internal/delivery/http/request"
	"github.com/Pesokrava/reviewhub/internal/delivery/http/response"
	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
	"github.com/Pesokrava/reviewhub/internal/usecase/review"
)

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	service *review.Service
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *review.Service, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  log,
	}
}

// CreateReviewRequest represents the request body for creating a review.
// userId defaults to the authenticated user.
type CreateReviewRequest struct {
	ItemID  json.Number `json:"itemId" swaggertype:"integer"`
	UserID  string      `json:"userId,omitempty"`
	Rating  json.Number `json:"rating" swaggertype:"integer"`
	Title   string      `json:"title"`
	Comment *string     `json:"comment,omitempty"`
}

// UpdateReviewRequest represents a partial review update
type UpdateReviewRequest struct {
	Rating  *json.Number `json:"rating,omitempty" swaggertype:"integer"`
	Title   *string      `json:"title,omitempty"`
	Comment *string      `json:"comment,omitempty"`
}

// DeleteReviewResponse carries the id of the deleted review
type DeleteReviewResponse struct {
	ID int64 `json:"id"`
}

// Create handles POST /api/v1/reviews
// @Summary Create a new review
// @Description Create a review for an item. The item's average rating and review count are recomputed before the response is sent.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param review body CreateReviewRequest true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} response.ErrorBody "Validation failed"
// @Failure 401 {object} response.ErrorBody "Missing or invalid token"
// @Failure 403 {object} response.ErrorBody "userId does not match the token"
// @Failure 404 {object} response.ErrorBody "Item not found"
// @Failure 503 {object} response.ErrorBody "Storage unavailable"
// @Router /reviews [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		badRequest(w, domain.CodeInvalidBody, "Invalid request body")
		return
	}

	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Unparseable numbers become zero so the service reports them with the
	// same codes and precedence as out-of-range values
	itemID, err := req.ItemID.Int64()
	if err != nil {
		itemID = 0
	}
	rating, ok := request.ParseRating(req.Rating)
	if !ok {
		rating = 0
	}

	rev := &domain.Review{
		ItemID:  itemID,
		UserID:  userID,
		Rating:  rating,
		Title:   req.Title,
		Comment: req.Comment,
	}

	if err := h.service.Create(r.Context(), rev); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, rev)
}

// Update handles PUT and PATCH /api/v1/reviews/{id}
// @Summary Update a review
// @Description Partially update a review. Omitted fields keep their values. The item aggregate is recomputed when rating is supplied.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Param review body UpdateReviewRequest true "Fields to change"
// @Success 200 {object} map[string]interface{} "Review updated successfully"
// @Failure 400 {object} response.ErrorBody "Validation failed"
// @Failure 401 {object} response.ErrorBody "Missing or invalid token"
// @Failure 403 {object} response.ErrorBody "Review belongs to another user"
// @Failure 404 {object} response.ErrorBody "Review not found"
// @Failure 503 {object} response.ErrorBody "Storage unavailable"
// @Router /reviews/{id} [put]
// @Router /reviews/{id} [patch]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetInt64Param(r, "id")
	if err != nil {
		badRequest(w, domain.CodeInvalidID, "Invalid review ID")
		return
	}

	var req UpdateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		badRequest(w, domain.CodeInvalidBody, "Invalid request body")
		return
	}

	if err := h.authorizeOwner(r, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	patch := domain.ReviewPatch{
		Title:   req.Title,
		Comment: req.Comment,
	}
	if req.Rating != nil {
		rating, ok := request.ParseRating(*req.Rating)
		if !ok {
			rating = 0
		}
		patch.Rating = &rating
	}

	updated, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, updated)
}

// Delete handles DELETE /api/v1/reviews/{id}
// @Summary Delete a review
// @Description Delete a review and recompute its item's aggregate.
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 200 {object} map[string]interface{} "Deleted review id"
// @Failure 400 {object} response.ErrorBody "Invalid review ID"
// @Failure 401 {object} response.ErrorBody "Missing or invalid token"
// @Failure 403 {object} response.ErrorBody "Review belongs to another user"
// @Failure 404 {object} response.ErrorBody "Review not found"
// @Failure 503 {object} response.ErrorBody "Storage unavailable"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetInt64Param(r, "id")
	if err != nil {
		badRequest(w, domain.CodeInvalidID, "Invalid review ID")
		return
	}

	if err := h.authorizeOwner(r, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, DeleteReviewResponse{ID: deleted.ID})
}

// GetByID handles GET /api/v1/reviews/{id}
// @Summary Get a review
// @Tags Reviews
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} map[string]interface{} "Review"
// @Failure 400 {object} response.ErrorBody "Invalid review ID"
// @Failure 404 {object} response.ErrorBody "Review not found"
// @Router /reviews/{id} [get]
func (h *ReviewHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetInt64Param(r, "id")
	if err != nil {
		badRequest(w, domain.CodeInvalidID, "Invalid review ID")
		return
	}

	rev, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rev)
}

// ListByItem handles GET /api/v1/items/{id}/reviews
// @Summary Get reviews for an item
// @Description Get a paginated list of an item's reviews, newest first. Results are cached.
// @Tags Reviews
// @Produce json
// @Param id path int true "Item ID"
// @Param limit query int false "Number of reviews per page (max 100)" default(20)
// @Param offset query int false "Number of reviews to skip" default(0)
// @Success 200 {object} map[string]interface{} "Paginated list of reviews"
// @Failure 400 {object} response.ErrorBody "Invalid item ID"
// @Router /items/{id}/reviews [get]
func (h *ReviewHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := request.GetInt64Param(r, "id")
	if err != nil {
		badRequest(w, domain.CodeInvalidItemID, "Invalid item ID")
		return
	}

	limit, offset := request.GetPaginationParams(r, 20, 100)

	reviews, total, err := h.service.ListByItem(r.Context(), itemID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Paginated(w, reviews, total, limit, offset)
}

// authorizeOwner allows only the author to change a review
func (h *ReviewHandler) authorizeOwner(r *http.Request, id int64) error {
	existing, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		return err
	}
	if existing.UserID != middleware.UserIDFromContext(r.Context()) {
		return domain.ErrForbidden
	}
	return nil
}

// resolveUserID picks the review author. A body userId must match the token.
func resolveUserID(r *http.Request, bodyUserID string) (string, error) {
	authUserID := middleware.UserIDFromContext(r.Context())
	bodyUserID = strings.TrimSpace(bodyUserID)

	switch {
	case authUserID == "":
		return "", domain.ErrUnauthorized
	case bodyUserID == "":
		return authUserID, nil
	case bodyUserID != authUserID:
		return "", domain.ErrForbidden
	}
	return bodyUserID, nil
}
