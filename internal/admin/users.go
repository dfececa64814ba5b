package admin

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

type AdminUser struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Role      user.Role          `json:"role"`
	Rating    user.RatingSummary `json:"rating"`
	CreatedAt time.Time          `json:"createdAt"`
}

// GET /admin/users?page=&limit=
func (h *Handler) ListUsers(c echo.Context) error {
	page := utils.PageFromQuery(c)
	users, total, err := h.users.List(c.Request().Context(), page.Skip(), int64(page.Limit))
	if err != nil {
		return err
	}

	out := make([]AdminUser, 0, len(users))
	for _, u := range users {
		out = append(out, AdminUser{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			Rating:    u.Rating,
			CreatedAt: u.CreatedAt,
		})
	}
	return utils.OK(c, echo.Map{"users": out, "pagination": page.Paginate(total)})
}
