package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/unionhall/pit-reservations/internal/http/response"
	"github.com/unionhall/pit-reservations/pkg/auth"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireAdmin guards the administrative surface: a valid bearer token with
// role=admin is required.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "invalid authorization header")
				return
			}
			raw := strings.TrimPrefix(authz, "Bearer ")
			claims, err := auth.Parse(raw, secret)
			if err != nil {
				response.Unauthorized(w, "invalid authorization token")
				return
			}
			if claims.Role != "admin" {
				response.Forbidden(w, "admin role required")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}
