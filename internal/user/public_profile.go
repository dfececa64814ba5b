package user

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/gighub/internal/utils"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// PublicProfile is what anyone may see about a user.
type PublicProfile struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Role   Role          `json:"role"`
	Bio    string        `json:"bio,omitempty"`
	Skills []string      `json:"skills"`
	Rating RatingSummary `json:"rating"`
}

// GET /users/:id
func (h *Handler) GetPublicProfile(c echo.Context) error {
	u, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return utils.OK(c, echo.Map{"user": PublicProfile{
		ID:     u.ID,
		Name:   u.Name,
		Role:   u.Role,
		Bio:    u.Bio,
		Skills: u.Skills,
		Rating: u.Rating,
	}})
}

// GET /auth/me
func (h *Handler) Me(c echo.Context) error {
	who, err := IdentityFrom(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Get(c.Request().Context(), who.ID)
	if err != nil {
		return err
	}
	return utils.OK(c, echo.Map{"user": u})
}
