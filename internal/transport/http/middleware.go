package http

import (
	"context"
	"net/http"
	"strings"
)

// TokenVerifier checks a bearer token and returns the team it belongs to.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type contextKey struct{}

var teamIDKey contextKey

// teamID returns the authenticated team injected by requireAuth.
func teamID(r *http.Request) string {
	id, _ := r.Context().Value(teamIDKey).(string)
	return id
}

// requireAuth verifies the Authorization header and injects the team ID into
// the request context. Requests without a valid token never reach the game.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "not authorized, no token")
			return
		}
		id, err := h.verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authorized, token failed")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), teamIDKey, id)))
	}
}
