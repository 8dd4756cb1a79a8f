package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/opencampus/studysync/internal/db"
	"github.com/opencampus/studysync/internal/db/models"
	"gorm.io/gorm"
)

type contextKey string

const userKey contextKey = "sessionUser"

// UserFrom returns the authenticated user attached by SessionAuth.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// WithUser attaches a user to the context. Exposed for handler tests.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// SessionAuth validates the bearer session token against the users
// table and attaches the resolved user to the request context.
// Requests without a valid token are rejected with 401.
func SessionAuth(database *gorm.DB) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
			if token == "" {
				// Session cookie fallback for browser-driven flows.
				if cookie, err := r.Cookie("session"); err == nil {
					token = cookie.Value
				}
			}

			user, found, err := db.FindUserBySessionToken(database, token)
			if err != nil {
				http.Error(w, "session lookup failed", http.StatusInternalServerError)
				return
			}
			if !found {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
