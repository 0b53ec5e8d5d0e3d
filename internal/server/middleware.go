package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/grovehq/grove/internal/httpx"
)

type ctxKey int

const userIDKey ctxKey = iota

// userHeader carries the authenticated user id, injected by the auth layer
// (session/OIDC/SAML) sitting in front of this service. Auth protocol
// handling itself is out of scope here.
const userHeader = "X-Grove-User"

// RequireUser rejects requests without an authenticated user and stores the
// user id on the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(userHeader)
		if raw == "" {
			httpx.JSONError(w, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httpx.JSONError(w, http.StatusUnauthorized, "invalid user identity", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// UserID extracts the authenticated user id set by RequireUser.
func UserID(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(userIDKey).(uint64)
	return id, ok
}
