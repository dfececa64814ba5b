package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
	"github.com/sudo-init-do/gighub/internal/utils"
)

type Handler struct {
	users           user.Store
	secret          []byte
	ttl             time.Duration
	bootstrapSecret string
	log             *logrus.Logger
}

func NewHandler(users user.Store, secret []byte, ttl time.Duration, bootstrapSecret string, log *logrus.Logger) *Handler {
	return &Handler{users: users, secret: secret, ttl: ttl, bootstrapSecret: bootstrapSecret, log: log}
}

type SignupRequest struct {
	Name     string    `json:"name" validate:"required,min=2,max=50"`
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=6"`
	Role     user.Role `json:"role" validate:"required,oneof=client freelancer"`
	Bio      string    `json:"bio" validate:"max=500"`
	Skills   []string  `json:"skills" validate:"omitempty,dive,max=50"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *Handler) issue(u *user.User) (*AuthResponse, error) {
	token, err := utils.IssueToken(h.secret, h.ttl, u.ID, string(u.Role), u.Name)
	if err != nil {
		return nil, apperr.Internal("token generation failed", err)
	}
	return &AuthResponse{Token: token, User: u}, nil
}

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	if err := c.Validate(req); err != nil {
		return err
	}

	res, err := h.signup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return utils.Respond(c, http.StatusCreated, res, "Account created successfully")
}

func (h *Handler) signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Email:     req.Email,
		Password:  string(hashed),
		Role:      req.Role,
		Bio:       req.Bio,
		Skills:    req.Skills,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if u.Skills == nil {
		u.Skills = []string{}
	}

	if err := h.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("an account with this email already exists", err)
		}
		return nil, apperr.Internal("failed to create user", err)
	}
	h.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user signed up")
	return h.issue(u)
}
