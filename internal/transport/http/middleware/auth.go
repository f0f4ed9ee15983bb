package middleware

import (
	"context"
	"net/http"
	"strings"

	"kpi/internal/domain/auth"
	"kpi/internal/transport/http/api"
)

type ctxKey string

const ctxKeyAdmin ctxKey = "admin"

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth attaches admin claims when the request carries a valid bearer token.
// Requests without one pass through anonymously.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyAdmin, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetAdmin(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "admin authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetAdmin(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyAdmin).(*auth.Claims)
	return claims, ok && claims != nil
}

// WithAdmin is used by tests and internal callers to act as an authenticated admin.
func WithAdmin(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ctxKeyAdmin, claims)
}

func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
