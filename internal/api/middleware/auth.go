package middleware

import (
	"context"
	"net/http"
	"strings"

	"cyberguard/internal/domain/models"
	"cyberguard/internal/infrastructure/database"
)

// ContextKey is a type for context keys
type ContextKey string

const (
	// ContextKeySession is the context key for the authenticated session
	ContextKeySession ContextKey = "session"
)

// SessionAuth returns middleware that validates session-token authentication
// against the session store. The token travels as a Bearer header.
func SessionAuth(store *database.Store) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for OPTIONS requests (CORS preflight)
			if r.Method == "OPTIONS" {
				next.ServeHTTP(w, r)
				return
			}

			token := ExtractToken(r)
			if token == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			sess, err := store.VerifySession(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired session"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken pulls the session token from the Authorization header,
// accepting both "Bearer <token>" and a bare token.
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return authHeader
}

// GetSession returns the authenticated session from context, if any
func GetSession(ctx context.Context) *models.Session {
	if sess, ok := ctx.Value(ContextKeySession).(*models.Session); ok {
		return sess
	}
	return nil
}
