package utils

import "github.com/labstack/echo/v4"

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxName   = "name"
)

// SetRequester stores the authenticated requester on the echo context.
func SetRequester(c echo.Context, id, role, name string) {
	c.Set(ctxUserID, id)
	c.Set(ctxRole, role)
	c.Set(ctxName, name)
}

// Requester returns the values stored by SetRequester.
func Requester(c echo.Context) (id, role, name string, ok bool) {
	id, _ = c.Get(ctxUserID).(string)
	role, _ = c.Get(ctxRole).(string)
	name, _ = c.Get(ctxName).(string)
	return id, role, name, id != ""
}
