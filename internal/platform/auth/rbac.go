package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/hnms/hnms/internal/platform/apperror"
	"github.com/hnms/hnms/internal/platform/policy"
)

// RequireAction returns middleware that rejects requests whose principal's
// role is not in the action's allow-list. Tenant checks happen later in the
// service, where the target row is known.
func RequireAction(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok || !p.Authenticated() {
				return apperror.Unauthorized("Authentication required.")
			}
			if !policy.RoleAllowed(p.Role, action) {
				_, err := policy.Authorize(p, action, nil)
				return err
			}
			return next(c)
		}
	}
}
