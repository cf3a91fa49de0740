package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/policy"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// Verifier validates a bearer token and returns its principal.
type Verifier interface {
	Verify(token string) (policy.Principal, error)
}

// Authenticate returns middleware that requires a valid bearer token on every
// request the skipper does not exempt, and stores the resulting principal on
// the request context.
func Authenticate(v Verifier, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperror.Unauthorized("No token provided. Access denied.")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return apperror.Unauthorized("No token provided. Access denied.")
			}

			p, err := v.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return apperror.Unauthorized("Invalid or expired token.")
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p policy.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (policy.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(policy.Principal)
	return p, ok
}

// PrincipalFrom returns the request's principal, or the zero Principal for
// unauthenticated requests. The zero value is rejected by policy.Authorize.
func PrincipalFrom(c echo.Context) policy.Principal {
	p, _ := PrincipalFromContext(c.Request().Context())
	return p
}
