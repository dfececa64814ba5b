package user

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/utils"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleFreelancer, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated requester, as established by the JWT middleware.
type Identity struct {
	ID   string
	Role Role
	Name string
}

// IdentityFrom reads the requester placed on the context by the JWT middleware.
func IdentityFrom(c echo.Context) (Identity, error) {
	id, role, name, ok := utils.Requester(c)
	if !ok {
		return Identity{}, apperr.Unauthorized("unauthorized")
	}
	return Identity{ID: id, Role: Role(role), Name: name}, nil
}

// RatingSummary is derived data: only the rating aggregator writes it.
type RatingSummary struct {
	Average float64 `json:"average" bson:"average"`
	Count   int64   `json:"count" bson:"count"`
}

type User struct {
	ID        string        `json:"id" bson:"_id"`
	Name      string        `json:"name" bson:"name"`
	Email     string        `json:"email" bson:"email"`
	Password  string        `json:"-" bson:"password"`
	Role      Role          `json:"role" bson:"role"`
	Bio       string        `json:"bio,omitempty" bson:"bio,omitempty"`
	Skills    []string      `json:"skills" bson:"skills"`
	Rating    RatingSummary `json:"rating" bson:"rating"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// Summary is the reduced view embedded when another record references a user.
type Summary struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email,omitempty"`
	Rating RatingSummary `json:"rating"`
}

func (u *User) Summary() *Summary {
	if u == nil {
		return nil
	}
	return &Summary{ID: u.ID, Name: u.Name, Rating: u.Rating}
}

// SummaryWithEmail is used where the viewer is entitled to contact details.
func (u *User) SummaryWithEmail() *Summary {
	s := u.Summary()
	if s != nil {
		s.Email = u.Email
	}
	return s
}

type ProfilePatch struct {
	Name   *string
	Bio    *string
	Skills *[]string
}

func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Bio == nil && p.Skills == nil
}

type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]*User, error)
	ListUsers(ctx context.Context, skip, limit int64) ([]*User, int64, error)
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	SetRole(ctx context.Context, email string, role Role) error
}
