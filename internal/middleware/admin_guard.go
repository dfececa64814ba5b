package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

// AdminGuard ensures only admin users can access admin routes
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, role, _, ok := utils.Requester(c)
		if !ok || user.Role(role) != user.RoleAdmin {
			return apperr.Forbidden("admin access only")
		}
		return next(c)
	}
}
