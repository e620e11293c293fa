package service

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/repository"
)

// UserService exposes account administration.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns every account. Admin only.
func (s *UserService) List(ctx context.Context, cu model.CurrentUser) ([]model.User, error) {
	if !cu.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	return s.users.List(ctx)
}

// SetRole changes another account's role. Admins cannot change their own role,
// so at least one admin always remains.
func (s *UserService) SetRole(ctx context.Context, cu model.CurrentUser, id uuid.UUID, role string) error {
	if !cu.IsAdmin() {
		return errs.ErrAccessDenied
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return err
	}
	if id == cu.ID {
		return errs.Invalid("cannot change own role")
	}
	return s.users.SetRole(ctx, id, r)
}
