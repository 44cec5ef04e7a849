package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

type claimsKey struct{}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}

	return token, true
}

// Authenticate validates the bearer token on a request and returns its claims.
func (s *Service) Authenticate(r *http.Request) (*Claims, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, ErrInvalidToken
	}

	return s.ValidateToken(token)
}

// WithClaims stores validated claims on the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the validated claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)

	return claims, ok
}

func deny(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// AuthMiddleware rejects requests without a valid access token and puts
// the claims on the request context.
func AuthMiddleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := svc.Authenticate(r)
			if err != nil {
				deny(w, r, http.StatusUnauthorized, "authentication required")

				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequirePermission rejects authenticated requests whose role lacks the
// permission.
func RequirePermission(permission Permission) func(http.Handler) http.Handler {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission passes when the role holds at least one of the
// given permissions. It runs after AuthMiddleware.
func RequireAnyPermission(permissions ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized, "authentication required")

				return
			}

			if !GetRole(claims.Role).HasAnyPermission(permissions...) {
				deny(w, r, http.StatusForbidden, "insufficient permissions")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
