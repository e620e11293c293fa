package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Policy configures the sliding window and lockout.
type Policy struct {
	Window   time.Duration // failures older than this restart the count
	MaxFails int           // failures within Window that trigger a block
	BlockFor time.Duration
}

// DefaultPolicy allows 5 failures per 15 minutes and then blocks for 15 minutes.
var DefaultPolicy = Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}

// Querier is the subset of a pgx pool used by the limiter.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG is a PostgreSQL-backed limiter with sliding window and lockout.
type PG struct {
	q   Querier
	pol Policy
	now func() time.Time
}

// NewPG constructs a PostgreSQL-backed limiter. Zero policy fields take defaults.
func NewPG(q Querier, pol Policy) *PG {
	if pol.Window <= 0 {
		pol.Window = DefaultPolicy.Window
	}
	if pol.MaxFails <= 0 {
		pol.MaxFails = DefaultPolicy.MaxFails
	}
	if pol.BlockFor <= 0 {
		pol.BlockFor = DefaultPolicy.BlockFor
	}
	return &PG{q: q, pol: pol, now: time.Now}
}

// NormalizeLogin folds a login (email) so case variants share one counter.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// HashIP returns a stable hash of the host part of addr so raw addresses are never stored.
func HashIP(addr string) []byte {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	h := sha256.Sum256([]byte(addr))
	return h[:]
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE username=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, NormalizeLogin(login), ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if left := blockedUntil.Sub(l.now()); left > 0 {
			return false, left, nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (login, ip).
func (l *PG) Success(ctx context.Context, login string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (username, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,0,'epoch',now())
ON CONFLICT (username, ip_hash)
DO UPDATE SET fail_count=0, blocked_until='epoch', updated_at=now()`
	_, err := l.q.Exec(ctx, q, NormalizeLogin(login), ipHash)
	return err
}

// Failure records a failed attempt; may set a block until a future time.
func (l *PG) Failure(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	login = NormalizeLogin(login)

	const q = `
INSERT INTO auth_limiter (username, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (username, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN EXCLUDED.updated_at - auth_limiter.updated_at > $3::interval THEN 1 ELSE auth_limiter.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, login, ipHash, l.pol.Window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.pol.MaxFails {
		return false, 0, nil
	}
	const upd = `UPDATE auth_limiter SET blocked_until=$3 WHERE username=$1 AND ip_hash=$2`
	if _, err := l.q.Exec(ctx, upd, login, ipHash, l.now().Add(l.pol.BlockFor)); err != nil {
		return false, 0, err
	}
	return true, l.pol.BlockFor, nil
}
