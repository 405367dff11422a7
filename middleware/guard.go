// Package middleware provides the HTTP bearer-token guard. It extracts the
// Authorization header, validates the token through the engine, and stores
// the verified claims in the request context for downstream handlers.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/webqx-health/authkit"
)

type contextKey struct{}

var claimsKey contextKey

// Validator is the subset of the engine the guard needs.
type Validator interface {
	Validate(ctx context.Context, token string) (*authkit.VerifiedClaims, error)
}

// ClaimsFromContext returns the claims stored by [Guard], if any.
func ClaimsFromContext(ctx context.Context) (*authkit.VerifiedClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*authkit.VerifiedClaims)
	return claims, ok
}

// Guard rejects requests without a valid bearer token. The rejection body is
// identical for a missing header, a malformed header, and a failed
// verification.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			claims, err := v.Validate(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": "Invalid or expired token",
	})
}
