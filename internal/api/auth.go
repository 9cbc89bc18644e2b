package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/mroshb/scrim_bot/internal/security"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

type contextKey string

const serviceContextKey contextKey = "service"

// Authenticate requires a bearer service token signed with secret.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				errorResponse(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := security.ValidateServiceToken(token, secret)
			if err != nil {
				logger.Warn("Rejected API token", "path", r.URL.Path, "error", err)
				errorResponse(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), serviceContextKey, claims.Service)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ServiceFromContext returns the authenticated caller's service name.
func ServiceFromContext(ctx context.Context) string {
	service, _ := ctx.Value(serviceContextKey).(string)
	return service
}
