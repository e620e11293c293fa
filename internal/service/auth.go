// Package service contains application services: authentication, documents,
// field placement, signing requests, stamping and summaries.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/signator/internal/crypto"
	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/limiter"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/repository"
)

const minPasswordLen = 8

// AuthService defines registration, login and token verification.
type AuthService interface {
	// Register creates a new USER account.
	Register(ctx context.Context, name, email, password string) (userID uuid.UUID, err error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, email, password, ip string) (tokens model.Tokens, user model.User, err error)
	// Authenticate verifies an access token and returns the caller.
	Authenticate(token string) (model.CurrentUser, error)
}

// Claims is the access token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	now       func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, now: time.Now}
}

// ValidateSignup checks the registration fields.
func ValidateSignup(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return errs.Invalid("name is required")
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		return errs.Invalid("invalid email")
	}
	if len(password) < minPasswordLen {
		return errs.Invalid("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// Register creates a new user record with an Argon2id password hash.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (uuid.UUID, error) {
	email = strings.TrimSpace(email)
	if err := ValidateSignup(name, email, password); err != nil {
		return uuid.Nil, err
	}
	return CreateUser(ctx, s.users, name, email, password, model.RoleUser)
}

// CreateUser hashes the password and stores a user with the given role.
func CreateUser(ctx context.Context, users repository.UserRepository, name, email, password string, role model.Role) (uuid.UUID, error) {
	uid, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return uuid.Nil, err
	}
	u := &model.User{
		ID:      uid,
		Name:    strings.TrimSpace(name),
		Email:   strings.ToLower(email),
		Role:    role,
		PwdHash: hash,
	}
	if err := users.Create(ctx, u); err != nil {
		return uuid.Nil, err
	}
	return uid, nil
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	ok := false
	if err == nil {
		ok, err = pkgcrypto.VerifyPassword(password, u.PwdHash)
	}
	if err != nil && !errors.Is(err, errs.ErrNotFound) && !errors.Is(err, pkgcrypto.ErrBadHash) {
		return model.Tokens{}, model.User{}, err
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// unknown email and wrong password look the same
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)

	access, exp, err := s.issueAccessToken(u)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

// issueAccessToken creates a signed HS256 JWT carrying id, email and role.
func (s *AuthServiceImpl) issueAccessToken(u *model.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: u.Email,
		Role:  u.Role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// Authenticate parses and validates an access token.
func (s *AuthServiceImpl) Authenticate(token string) (model.CurrentUser, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return model.CurrentUser{}, fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return model.CurrentUser{}, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	if !claims.Role.Valid() {
		return model.CurrentUser{}, fmt.Errorf("%w: bad role", errs.ErrUnauthorized)
	}
	return model.CurrentUser{ID: id, Email: claims.Email, Role: claims.Role}, nil
}
