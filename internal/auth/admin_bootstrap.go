package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

type BootstrapAdminRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Secret string `json:"secret" validate:"required"`
}

// BootstrapAdmin promotes an existing account to admin when the caller knows
// ADMIN_BOOTSTRAP_SECRET. Disabled when the secret is unset.
// POST /auth/bootstrap-admin
func (h *Handler) BootstrapAdmin(c echo.Context) error {
	if h.bootstrapSecret == "" {
		return apperr.Forbidden("bootstrap disabled")
	}
	req := new(BootstrapAdminRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	if err := c.Validate(req); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.bootstrapSecret)) != 1 {
		return apperr.Forbidden("invalid secret")
	}

	email := req.Email
	if err := h.users.SetRole(c.Request().Context(), email, user.RoleAdmin); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to promote user", err)
	}
	h.log.WithField("email", email).Warn("user promoted to admin via bootstrap")
	return utils.Respond(c, http.StatusOK, echo.Map{"email": email}, "user promoted to admin")
}
