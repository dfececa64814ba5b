package utils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/gighub/internal/apperr"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

func Respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

func OK(c echo.Context, data any) error {
	return Respond(c, http.StatusOK, data, "")
}

// ErrorHandler renders errors returned by handlers and middleware as a failed Envelope.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := Envelope{Success: false, Message: "internal server error"}

		var he *echo.HTTPError
		var ae *apperr.Error
		switch {
		case errors.As(err, &ae):
			status = apperr.HTTPStatus(ae.Kind)
			if ae.Kind == apperr.KindInternal {
				log.WithFields(logrus.Fields{
					"path":  c.Path(),
					"stack": string(ae.Stack),
				}).WithError(ae.Err).Error(ae.Message)
			} else {
				body.Message = ae.Message
				body.Errors = ae.Fields
			}
		case errors.As(err, &he):
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				body.Message = msg
			} else {
				body.Message = http.StatusText(he.Code)
			}
		default:
			log.WithField("path", c.Path()).WithError(err).Error("unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.WithError(werr).Warn("failed to write error response")
		}
	}
}
