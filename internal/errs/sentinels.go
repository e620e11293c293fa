// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied indicates the caller is authenticated but not allowed to act.
	ErrAccessDenied = errors.New("access denied")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput indicates a malformed or semantically invalid request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPageNumber indicates a page outside [1, pageCount].
	ErrInvalidPageNumber = fmt.Errorf("%w: invalid page number", ErrInvalidInput)

	// ErrAlreadySigned indicates a signing request is no longer PENDING.
	ErrAlreadySigned = fmt.Errorf("%w: already signed", ErrInvalidInput)

	// ErrUnknownStatus indicates a status value outside the closed enum.
	ErrUnknownStatus = fmt.Errorf("%w: unknown status", ErrInvalidInput)

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrStorage indicates a blob or database failure the caller cannot fix.
	ErrStorage = errors.New("storage failure")
)

// Invalid wraps a validation message into ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
