package middleware

import (
	"context"
	"net/http"

	"github.com/postagram/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// CallerIDKey is the context key for the caller's identity.
const CallerIDKey contextKey = "callerID"

// RequireIdentity extracts the caller identity from the Authorization header
// and injects it into the request context. The value is an opaque token that
// upstream infrastructure has already verified; this service only requires
// that it is present.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get("Authorization")
		if caller == "" {
			response.Unauthorized(w, "authorization header required")
			return
		}

		ctx := context.WithValue(r.Context(), CallerIDKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
