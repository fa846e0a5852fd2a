package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// IdentityMiddleware resolves the caller's identity. Authentication itself
// happens upstream; the gateway forwards the caller's uid in X-Parley-UID
// and this middleware verifies the uid refers to a registered user before
// letting the request through.
type IdentityMiddleware struct {
	users store.DataStore
}

// NewIdentityMiddleware creates a new identity middleware.
func NewIdentityMiddleware(users store.DataStore) *IdentityMiddleware {
	return &IdentityMiddleware{users: users}
}

// RequireUser resolves X-Parley-UID into a user and stores it on the
// request context.
func (m *IdentityMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uidStr := r.Header.Get("X-Parley-UID")
		if uidStr == "" {
			jsonError(w, http.StatusUnauthorized, "missing X-Parley-UID header")
			return
		}

		uid, err := strconv.ParseInt(uidStr, 10, 64)
		if err != nil || uid <= 0 {
			jsonError(w, http.StatusUnauthorized, "invalid uid format")
			return
		}

		user, err := m.users.GetUserByUID(r.Context(), uid)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "identity lookup failed")
			return
		}
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the resolved user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
