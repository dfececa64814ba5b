package user_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/db/memdb"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
	"github.com/sudo-init-do/gighub/internal/validation"
)

func setup(t *testing.T) (*memdb.Store, *user.Service, *user.User) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	s := memdb.New()
	now := time.Now().UTC()
	u := &user.User{
		ID:        "u-1",
		Name:      "Sarah Chen",
		Email:     "sarah@example.com",
		Password:  "hash",
		Role:      user.RoleFreelancer,
		Skills:    []string{"figma"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return s, user.NewService(s, log), u
}

func TestServiceGet(t *testing.T) {
	_, svc, u := setup(t)

	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sarah Chen", got.Name)

	_, err = svc.Get(context.Background(), "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestServiceUpdateProfile(t *testing.T) {
	_, svc, u := setup(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, u.ID, user.ProfilePatch{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	bio := "Product designer"
	updated, err := svc.UpdateProfile(ctx, u.ID, user.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, updated.Bio)
	assert.Equal(t, []string{"figma"}, updated.Skills, "untouched fields survive")

	_, err = svc.UpdateProfile(ctx, "missing", user.ProfilePatch{Bio: &bio})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func newEcho() *echo.Echo {
	log := logrus.New()
	log.SetOutput(io.Discard)
	e := echo.New()
	e.Validator = validation.New()
	e.HTTPErrorHandler = utils.ErrorHandler(log)
	return e
}

func TestPublicProfileHidesEmail(t *testing.T) {
	_, svc, u := setup(t)
	h := user.NewHandler(svc)
	e := newEcho()
	e.GET("/users/:id", h.GetPublicProfile)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+u.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sarah@example.com")
	assert.NotContains(t, rec.Body.String(), "password")

	var body struct {
		Data struct {
			User user.PublicProfile `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, user.RoleFreelancer, body.Data.User.Role)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProfileHandler(t *testing.T) {
	_, svc, u := setup(t)
	h := user.NewHandler(svc)
	e := newEcho()
	authed := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			utils.SetRequester(c, u.ID, string(u.Role), u.Name)
			return next(c)
		}
	}
	e.PATCH("/users/profile", h.UpdateProfile, authed)

	patch := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/users/profile", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := patch(`{"name":"S"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = patch(`{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = patch(`{"name":"Sarah C.","skills":["figma","sketch"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sarah C.", me.Name)
	assert.Equal(t, []string{"figma", "sketch"}, me.Skills)
}
