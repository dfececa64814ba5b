package alerts

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

type Handler struct {
	store Store
	log   *logrus.Logger
}

func NewHandler(s Store, log *logrus.Logger) *Handler {
	return &Handler{store: s, log: log}
}

// ListNotifications returns the current user's notifications, newest first.
// GET /notifications?page=&limit=&unread=true
func (h *Handler) ListNotifications(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	page := utils.PageFromQuery(c)
	ctx := c.Request().Context()

	items, total, err := h.store.ListNotifications(ctx, Filter{
		UserID:     who.ID,
		UnreadOnly: c.QueryParam("unread") == "true",
		Skip:       page.Skip(),
		Limit:      int64(page.Limit),
	})
	if err != nil {
		return apperr.Internal("failed to load notifications", err)
	}
	unread, err := h.store.CountUnread(ctx, who.ID)
	if err != nil {
		return apperr.Internal("failed to count notifications", err)
	}
	if items == nil {
		items = []*Notification{}
	}

	return utils.OK(c, echo.Map{
		"notifications": items,
		"unreadCount":   unread,
		"pagination":    page.Paginate(total),
	})
}

// GET /notifications/unread-count
func (h *Handler) UnreadCount(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	n, err := h.store.CountUnread(c.Request().Context(), who.ID)
	if err != nil {
		return apperr.Internal("failed to count notifications", err)
	}
	return utils.OK(c, echo.Map{"unreadCount": n})
}

// MarkNotificationRead marks one of the caller's notifications as read.
// PUT /notifications/:id/read
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	err = h.store.MarkRead(c.Request().Context(), c.Param("id"), who.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("notification not found")
		}
		return apperr.Internal("failed to update notification", err)
	}
	return utils.Respond(c, http.StatusOK, nil, "Notification marked as read")
}

// PUT /notifications/read-all
func (h *Handler) MarkAllRead(c echo.Context) error {
	who, err := user.IdentityFrom(c)
	if err != nil {
		return err
	}
	n, err := h.store.MarkAllRead(c.Request().Context(), who.ID)
	if err != nil {
		return apperr.Internal("failed to update notifications", err)
	}
	h.log.WithFields(logrus.Fields{"user_id": who.ID, "count": n}).Debug("notifications marked read")
	return utils.Respond(c, http.StatusOK, echo.Map{"updated": n}, "All notifications marked as read")
}
