package user

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/gighub/internal/apperr"
	"github.com/sudo-init-do/gighub/internal/store"
)

type Service struct {
	store Store
	log   *logrus.Logger
}

func NewService(s Store, log *logrus.Logger) *Service {
	return &Service{store: s, log: log}
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to fetch user", err)
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*User, error) {
	if patch.Empty() {
		return nil, apperr.Validation("at least one field must be provided")
	}
	u, err := s.store.UpdateProfile(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to update profile", err)
	}
	s.log.WithField("user_id", id).Info("profile updated")
	return u, nil
}

func (s *Service) List(ctx context.Context, skip, limit int64) ([]*User, int64, error) {
	users, total, err := s.store.ListUsers(ctx, skip, limit)
	if err != nil {
		return nil, 0, apperr.Internal("failed to list users", err)
	}
	return users, total, nil
}
