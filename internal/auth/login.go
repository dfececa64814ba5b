package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/utils"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	if err := c.Validate(req); err != nil {
		return err
	}

	u, err := h.users.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Unauthorized("invalid credentials")
		}
		return apperr.Internal("failed to load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return apperr.Unauthorized("invalid credentials")
	}

	res, err := h.issue(u)
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusOK, res, "Login successful")
}
