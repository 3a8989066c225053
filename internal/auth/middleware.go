package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Define a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key used to store the user id in the context
	UserContextKey contextKey = "user"
)

type Middleware struct {
	tokens *TokenService
	repo   Repository
}

func NewMiddleware(tokens *TokenService, repo Repository) *Middleware {
	return &Middleware{tokens: tokens, repo: repo}
}

// Authenticate requires a valid bearer access token and stores the user id
// in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeAuthError(w, http.StatusUnauthorized, "missing token")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		userID, err := m.tokens.Decode(token, TokenKindAccess)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin loads the authenticated user and rejects anyone without the
// admin role. Must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := GetUserFromContext(r.Context())
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		user, err := m.repo.GetUserByID(userID)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid user")
			return
		}
		if !user.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext returns the authenticated user id stored by Authenticate.
func GetUserFromContext(ctx context.Context) (uint, error) {
	userID, ok := ctx.Value(UserContextKey).(uint)
	if !ok {
		return 0, errors.New("user not found in context")
	}
	return userID, nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Error: &errorBody{Message: message}})
}
