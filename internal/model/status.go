package model

import (
	"fmt"

	"github.com/and161185/signator/internal/errs"
)

// Role is the account role.
type Role string

// Roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("role %q: %w", s, errs.ErrUnknownStatus)
	}
	return r, nil
}

// DocumentStatus is the document lifecycle state: DRAFT -> READY, or SIGNED at creation.
type DocumentStatus string

// Document statuses.
const (
	DocumentDraft  DocumentStatus = "DRAFT"
	DocumentReady  DocumentStatus = "READY"
	DocumentSigned DocumentStatus = "SIGNED"
)

// Valid reports whether s is a known document status.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentDraft, DocumentReady, DocumentSigned:
		return true
	}
	return false
}

// Label is the human badge text.
func (s DocumentStatus) Label() string {
	switch s {
	case DocumentDraft:
		return "Template"
	case DocumentReady:
		return "Ready"
	case DocumentSigned:
		return "Signed"
	}
	return ""
}

// ParseDocumentStatus rejects values outside the closed set.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	st := DocumentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("document status %q: %w", s, errs.ErrUnknownStatus)
	}
	return st, nil
}

// RequestStatus is the signing request state: PENDING -> SIGNED, once.
type RequestStatus string

// Request statuses.
const (
	RequestPending RequestStatus = "PENDING"
	RequestSigned  RequestStatus = "SIGNED"
)

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool { return s == RequestPending || s == RequestSigned }

// Label is the human badge text.
func (s RequestStatus) Label() string {
	switch s {
	case RequestPending:
		return "Pending"
	case RequestSigned:
		return "Signed"
	}
	return ""
}

// ParseRequestStatus rejects values outside the closed set.
func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("request status %q: %w", s, errs.ErrUnknownStatus)
	}
	return st, nil
}

// FieldName identifies what gets stamped at a position.
type FieldName string

// Field names.
const (
	FieldSignerName FieldName = "name"
	FieldSignedAt   FieldName = "signedAt"
	FieldSignature  FieldName = "signature"
)

// Valid reports whether f is a known field.
func (f FieldName) Valid() bool {
	switch f {
	case FieldSignerName, FieldSignedAt, FieldSignature:
		return true
	}
	return false
}

// ParseFieldName rejects unknown field names.
func ParseFieldName(s string) (FieldName, error) {
	f := FieldName(s)
	if !f.Valid() {
		return "", errs.Invalid("unknown field %q", s)
	}
	return f, nil
}
