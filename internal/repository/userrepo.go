// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/model"
)

// UserRepository provides access to accounts.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns all users, newest first.
	List(ctx context.Context) ([]model.User, error)
	// SetRole changes a user's role.
	SetRole(ctx context.Context, id uuid.UUID, role model.Role) error
}
