// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account stored on the server.
type User struct {
	ID        uuid.UUID // PK
	Name      string
	Email     string // unique
	Role      Role
	PwdHash   string // encoded argon2id hash, see crypto.HashPassword
	CreatedAt time.Time
}

// CurrentUser is the authenticated caller passed explicitly into services.
type CurrentUser struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// IsAdmin reports whether the caller has the ADMIN role.
func (u CurrentUser) IsAdmin() bool { return u.Role == RoleAdmin }

// Document is an uploaded or generated PDF and its lifecycle state.
type Document struct {
	ID         uuid.UUID
	Title      string
	Filename   string // original client filename, display only
	StorageKey string // blob key, never derived from client input
	Status     DocumentStatus
	Summary    *string // cached AI summary
	OwnerID    uuid.UUID
	CreatedAt  time.Time
}

// FieldPosition is where one field should be stamped, in preview coordinates.
type FieldPosition struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	Page          int // 1-based
	Field         FieldName
	X, Y          float64 // top-left origin, preview pixels
	PreviewWidth  float64 // 0 when unknown
	PreviewHeight float64
	CreatedAt     time.Time
}

// Placement is a single field coordinate inside a positions payload.
type Placement struct {
	X, Y float64
}

// PositionsPayload is the admin's full field layout for one document.
// Pages maps a 1-based page number to the fields placed on it.
type PositionsPayload struct {
	Pages         map[int]map[FieldName]Placement
	PreviewWidth  float64
	PreviewHeight float64
}

// SigningRequest asks one recipient to sign one document.
// Exactly one of UserID and Email is set.
type SigningRequest struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	UserID     *uuid.UUID
	Email      *string
	Status     RequestStatus
	SignedAt   *time.Time // set iff Status == RequestSigned
	CreatedAt  time.Time
}

// BoundTo reports whether the request is addressed to the caller.
func (r SigningRequest) BoundTo(u CurrentUser) bool {
	if r.UserID != nil && *r.UserID == u.ID {
		return true
	}
	return r.Email != nil && u.Email != "" && *r.Email == u.Email
}

// RequestFilter narrows request listings; zero fields are ignored.
type RequestFilter struct {
	DocumentID *uuid.UUID
	UserID     *uuid.UUID
	Email      *string
}

// SignedOutput is the result of stamping a document.
type SignedOutput struct {
	DocumentID uuid.UUID
	URL        string
}
