package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/utils"
)

type UpdateProfileRequest struct {
	Name   *string   `json:"name" validate:"omitempty,min=2,max=50"`
	Bio    *string   `json:"bio" validate:"omitempty,max=500"`
	Skills *[]string `json:"skills" validate:"omitempty,dive,max=50"`
}

// PATCH /users/profile
func (h *Handler) UpdateProfile(c echo.Context) error {
	who, err := IdentityFrom(c)
	if err != nil {
		return err
	}

	req := new(UpdateProfileRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	u, err := h.svc.UpdateProfile(c.Request().Context(), who.ID, ProfilePatch{
		Name:   req.Name,
		Bio:    req.Bio,
		Skills: req.Skills,
	})
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusOK, echo.Map{"user": u}, "Profile updated successfully")
}
