package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"reader-sync/internal/domain"
	apperrors "reader-sync/pkg/errors"
)

type contextKey string

const (
	tokenContextKey contextKey = "token"
	userContextKey  contextKey = "user"
)

// GetTokenFromContext extracts the bearer token from request context
func GetTokenFromContext(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenContextKey).(string)
	return token, ok
}

func withToken(r *http.Request, token string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), tokenContextKey, token))
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps domain and application errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger domain.Logger, err error) {
	var validationErr *domain.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrAnchorNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnsupportedForFormat):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrStoreClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled")
	case errors.As(err, &appErr):
		status := apperrors.GetStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.Warn("Remote operation failed", "error", err)
		}
		writeError(w, status, appErr.Message)
	default:
		logger.Error("Unhandled error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
