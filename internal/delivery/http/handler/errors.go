package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Pesokrava/reviewhub/internal/delivery/http/response"
	"github.com/Pesokrava/reviewhub/internal/domain"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
)

const (
	codeNotFound         = "NOT_FOUND"
	codeUnauthorized     = "UNAUTHORIZED"
	codeForbidden        = "FORBIDDEN"
	codeConflict         = "CONFLICT"
	codeConsistencyError = "CONSISTENCY_ERROR"
	codeStorageError     = "STORAGE_ERROR"
	codeInternalError    = "INTERNAL_ERROR"
)

// writeError maps service layer errors to HTTP responses
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	var (
		verr *domain.ValidationError
		cerr *domain.ConsistencyError
		serr *domain.StorageError
	)

	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, verr.Code, verr.Message)
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, codeNotFound, "Resource not found")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, codeUnauthorized, "Authentication required")
	case errors.Is(err, domain.ErrForbidden):
		response.Error(w, http.StatusForbidden, codeForbidden, "Not allowed to act for this user")
	case errors.Is(err, domain.ErrConflict):
		response.Error(w, http.StatusConflict, codeConflict, err.Error())
	case errors.As(err, &cerr):
		log.Error("Aggregate consistency error", err)
		response.Error(w, http.StatusInternalServerError, codeConsistencyError, "Item aggregate could not be updated")
	case errors.As(err, &serr):
		log.Error("Storage error", err)
		response.Error(w, http.StatusServiceUnavailable, codeStorageError, "Storage temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warnf("Request deadline exceeded: %v", err)
		response.Error(w, http.StatusServiceUnavailable, codeStorageError, "Request timed out")
	default:
		log.Error("Internal error", err)
		response.Error(w, http.StatusInternalServerError, codeInternalError, "Internal server error")
	}
}

func badRequest(w http.ResponseWriter, code, message string) {
	response.Error(w, http.StatusBadRequest, code, message)
}
