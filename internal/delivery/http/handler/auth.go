package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/Pesokrava/reviewhub/internal/delivery/http/request"
	"github.com/Pesokrava/reviewhub/internal/delivery/http/response"
	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
)

// TokenIssuer signs bearer tokens for a user id
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// AuthHandler issues session tokens
type AuthHandler struct {
	tokens TokenIssuer
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(tokens TokenIssuer, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		tokens: tokens,
		logger: log,
	}
}

// SessionRequest names the user a token is issued for
type SessionRequest struct {
	UserID string `json:"userId"`
}

// SessionResponse carries a bearer token
type SessionResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
}

// CreateSession handles POST /api/v1/auth/session
// @Summary Issue a session token
// @Description Issue a bearer token for a user id. Stands in for the external identity provider in development.
// @Tags Auth
// @Accept json
// @Produce json
// @Param session body SessionRequest true "User to sign in"
// @Success 201 {object} map[string]interface{} "Token issued"
// @Failure 400 {object} response.ErrorBody "Missing userId"
// @Router /auth/session [post]
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		badRequest(w, domain.CodeInvalidBody, "Invalid request body")
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	token, expiresAt, err := h.tokens.Issue(req.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.With("user_id", req.UserID).Info("Session token issued")

	response.Created(w, SessionResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		UserID:    req.UserID,
	})
}
