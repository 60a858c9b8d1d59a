// Package middleware provides HTTP middleware for the converter API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/observability"
)

// Context keys for request-scoped values.
type contextKey string

const (
	// IdentityKey is the context key for the authenticated identity.
	IdentityKey contextKey = "identity"
)

// Authenticator resolves bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}

// Auth returns middleware that requires a valid bearer token and stores the
// resolved identity in the request context. Requests without one are rejected
// before reaching the handler.
func Auth(authenticator Authenticator, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, domain.KindUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
				writeAuthError(w, http.StatusUnauthorized, domain.KindUnauthorized, "invalid authorization header format")
				return
			}

			identity, err := authenticator.Authenticate(r.Context(), parts[1])
			if err != nil {
				if domain.IsKind(err, domain.KindUnauthorized) {
					logger.Debug().Err(err).Msg("Rejected bearer token")
					writeAuthError(w, http.StatusUnauthorized, domain.KindUnauthorized, domain.MessageOf(err))
					return
				}
				logger.Error().Err(err).Msg("Token validation failed")
				writeAuthError(w, http.StatusInternalServerError, domain.KindOf(err), domain.MessageOf(err))
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the authenticated identity from context.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

func writeAuthError(w http.ResponseWriter, status int, kind domain.Kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="doc-converter"`)
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   string(kind),
		"message": message,
	})
}
