package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/utils"
)

// JWTMiddleware authenticates "Authorization: Bearer <token>" and places the
// requester's id, role and name on the context.
func JWTMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return apperr.Unauthorized("missing or malformed token")
			}

			claims, err := utils.ParseToken(secret, strings.TrimSpace(token))
			if err != nil {
				return apperr.Unauthorized("invalid or expired token")
			}

			utils.SetRequester(c, claims.UserID, claims.Role, claims.Name)
			return next(c)
		}
	}
}
