package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/go-api-community/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Auth validates the Bearer JWT and injects claims into the context. A
// missing header is 401; a token that fails verification is 403.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || strings.TrimSpace(tokenStr) == "" {
				writeJSONError(w, http.StatusUnauthorized, "access denied, no token provided")
				return
			}
			claims, err := verifier.Verify(strings.TrimSpace(tokenStr))
			if err != nil || claims.UserID == "" {
				writeJSONError(w, http.StatusForbidden, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}

// WithClaims returns ctx carrying claims, as Auth would.
func WithClaims(ctx context.Context, claims *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
