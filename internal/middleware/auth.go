// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ctxKey string

const userKey ctxKey = "user"

// TokenResolver maps a bearer token to the user it was issued to.
type TokenResolver func(token string) (userID string, ok bool)

// BearerAuth is a middleware that enforces token authentication.
//
// It reads the "Authorization: Bearer <token>" header and resolves the token
// with resolve. On success the user ID is stored in the request context, so
// it can be used downstream as the authenticated user. Missing or unknown
// tokens are answered with 401 and a JSON message.
func BearerAuth(resolve TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				WriteMessage(w, http.StatusUnauthorized, "authorization required")
				return
			}
			userID, ok := resolve(token)
			if !ok {
				WriteMessage(w, http.StatusUnauthorized, "authorization required")
				return
			}
			ctx := context.WithValue(r.Context(), userKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the user ID stored by BearerAuth from the
// request context. Returns an empty string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// WriteMessage writes {"message": msg} with the given status.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
