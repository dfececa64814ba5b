package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles(user.RoleClient))
func RequireRoles(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, role, _, ok := utils.Requester(c)
			if !ok {
				return apperr.Unauthorized("unauthorized")
			}

			for _, r := range roles {
				if user.Role(role) == r {
					return next(c)
				}
			}
			return apperr.Forbidden("access denied")
		}
	}
}
