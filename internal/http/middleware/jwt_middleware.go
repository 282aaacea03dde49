package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/diagnosis/checkin-kiosk/internal/http/response"
	"github.com/diagnosis/checkin-kiosk/pkg/auth"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireJWT admits requests carrying a bearer token whose role satisfies
// requiredRole. When enabled is false every request passes.
func RequireJWT(secret, requiredRole string, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}
			raw := strings.TrimPrefix(authz, "Bearer ")
			claims, err := auth.Parse(raw, secret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					response.WriteError(w, http.StatusUnauthorized, "Token expired", response.CodeExpiredToken)
					return
				}
				response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
				return
			}
			if !auth.Allows(claims.Role, requiredRole) {
				response.Forbidden(w, "Insufficient permissions")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	v, _ := r.Context().Value(CtxClaims).(*auth.Claims)
	return v
}
