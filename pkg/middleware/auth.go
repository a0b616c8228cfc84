package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kwypchlo/demo-product-review-system/pkg/logger"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// SessionValidator resolves a bearer session token to a user ID. This lets
// the application inject its own session store lookup (database, cache)
// without the middleware knowing about it.
type SessionValidator func(ctx context.Context, token string) (userID string, err error)

// Auth validates the bearer session token and injects the resolved user ID
// into the request context. Requests without a valid session are rejected
// with 401 before reaching the handler.
func Auth(validate SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeAuthError(w, "invalid authorization header format")
				return
			}

			userID, err := validate(r.Context(), parts[1])
			if err != nil {
				writeAuthError(w, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = logger.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from the request
// context. Returns the empty string for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a context carrying the given user ID. Intended for
// tests that exercise authenticated paths without a full middleware stack.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
