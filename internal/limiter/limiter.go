// Package limiter throttles failed logins per email and client address.
package limiter

import (
	"context"
	"time"
)

// Limiter is consulted by the auth service around every password check.
// ipHash is HashIP of the client address; raw IPs are not stored.
type Limiter interface {
	// Allow returns false and the remaining block time while a key is locked out.
	Allow(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error)
	Success(ctx context.Context, login string, ipHash []byte) error
	// Failure counts one bad attempt and reports whether it triggered a block.
	Failure(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error)
}
