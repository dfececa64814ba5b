package admin

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

// StatsSource reports marketplace-wide counters.
type StatsSource interface {
	Stats(ctx context.Context) (*marketplace.Stats, error)
}

type Handler struct {
	stats StatsSource
	users *user.Service
	log   *logrus.Logger
}

func NewHandler(stats StatsSource, users *user.Service, log *logrus.Logger) *Handler {
	return &Handler{stats: stats, users: users, log: log}
}

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	st, err := h.stats.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return utils.OK(c, st)
}
