package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/gighub/internal/apperr"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := IssueToken(secret, time.Hour, "u1", "freelancer", "Sarah")
	require.NoError(t, err)

	claims, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "freelancer", claims.Role)
	assert.Equal(t, "Sarah", claims.Name)
}

func TestParseToken_Rejects(t *testing.T) {
	secret := []byte("test-secret")

	expired, err := IssueToken(secret, -time.Minute, "u1", "client", "John")
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.Error(t, err)

	other, err := IssueToken([]byte("other"), time.Hour, "u1", "client", "John")
	require.NoError(t, err)
	_, err = ParseToken(secret, other)
	assert.Error(t, err)

	_, err = ParseToken(secret, "not-a-token")
	assert.Error(t, err)
}

func TestRequester(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, _, _, ok := Requester(c)
	assert.False(t, ok)

	SetRequester(c, "u1", "client", "John")
	id, role, name, ok := Requester(c)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
	assert.Equal(t, "client", role)
	assert.Equal(t, "John", name)
}

func serveError(t *testing.T, err error) (int, Envelope) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(log)
	e.GET("/x", func(c echo.Context) error { return err })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandler_AppErrors(t *testing.T) {
	code, body := serveError(t, apperr.InvalidState("cannot update job that is not open"))
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, body.Success)
	assert.Equal(t, "cannot update job that is not open", body.Message)

	code, body = serveError(t, apperr.Validation("validation failed", apperr.FieldError{Field: "title", Message: "title is required"}))
	assert.Equal(t, http.StatusBadRequest, code)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "title", body.Errors[0].Field)
}

func TestErrorHandler_HidesInternalCause(t *testing.T) {
	code, body := serveError(t, apperr.Internal("failed to load job", errors.New("pq: password authentication failed")))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body.Message)

	code, body = serveError(t, errors.New("raw"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body.Message)
}

func TestErrorHandler_EchoHTTPError(t *testing.T) {
	code, body := serveError(t, echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", body.Message)
}
