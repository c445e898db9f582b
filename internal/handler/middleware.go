package handler

import (
	"context"
	"net/http"
	"strings"

	"reader-sync/internal/domain"
)

// TokenValidator resolves a bearer token to the user it belongs to.
type TokenValidator interface {
	ValidateToken(token string) (*domain.SupabaseUser, error)
}

// BearerTokenMiddleware requires an Authorization header and stores the token
// in the request context. With a nil validator tokens are only checked by the
// remote backend when a session uses them.
func BearerTokenMiddleware(validator TokenValidator, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Extract token from "Bearer <token>" format
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			token := parts[1]
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Token required")
				return
			}

			r = withToken(r, token)
			if validator != nil {
				user, err := validator.ValidateToken(token)
				if err != nil {
					logger.Warn("Token validation failed", "path", r.URL.Path, "error", err)
					writeError(w, http.StatusUnauthorized, "Invalid token")
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts the validated user from request context
func GetUserFromContext(r *http.Request) (*domain.SupabaseUser, bool) {
	user, ok := r.Context().Value(userContextKey).(*domain.SupabaseUser)
	return user, ok
}
