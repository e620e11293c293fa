package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, name, email, role, pwd_hash, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.PwdHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = r
	return &u, nil
}

// Create inserts a new user row. Emails are stored lowercased.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, role, pwd_hash)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Name, strings.ToLower(u.Email), string(u.Role), u.PwdHash)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return u, err
}

// GetByEmail selects a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, strings.ToLower(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return u, err
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// SetRole updates the role column.
func (r *UserRepo) SetRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	const q = `UPDATE users SET role=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
