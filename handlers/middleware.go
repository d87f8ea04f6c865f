package handlers

import (
	"context"
	"net/http"
	"strings"

	"exchange-chat/utils"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user id stashed by WithAuth.
func UserID(r *http.Request) string {
	if uid, ok := r.Context().Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}

// WithAuth verifies the bearer token and puts the user id into the request
// context. Accepts both "Bearer <token>" and a bare token header.
func (h *ChatHandler) WithAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			h.respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Access token required"})
			return
		}

		uid, _, err := utils.ParseJWT(h.cfg.JWTSecret, token)
		if err != nil {
			h.respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, uid)
		next(w, r.WithContext(ctx))
	}
}
