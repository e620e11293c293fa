package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/repository"
)

// SigningService manages signing requests.
type SigningService struct {
	docs     repository.DocumentRepository
	requests repository.SigningRequestRepository
	users    repository.UserRepository
	now      func() time.Time
}

// NewSigningService constructs SigningService.
func NewSigningService(
	docs repository.DocumentRepository,
	requests repository.SigningRequestRepository,
	users repository.UserRepository,
) *SigningService {
	return &SigningService{docs: docs, requests: requests, users: users, now: time.Now}
}

// CreateRequestsInput addresses one recipient, by account or by email, for
// one or more documents.
type CreateRequestsInput struct {
	DocumentIDs []uuid.UUID
	UserID      *uuid.UUID
	Email       string
}

// Create issues one PENDING request per distinct document. Admin only.
func (s *SigningService) Create(ctx context.Context, cu model.CurrentUser, in CreateRequestsInput) ([]model.SigningRequest, error) {
	if !cu.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if (in.UserID == nil) == (email == "") {
		return nil, errs.Invalid("exactly one of userId and email is required")
	}
	if len(in.DocumentIDs) == 0 {
		return nil, errs.Invalid("documentIds is required")
	}

	var (
		userID *uuid.UUID
		addr   *string
	)
	if in.UserID != nil {
		if _, err := s.users.GetByID(ctx, *in.UserID); err != nil {
			return nil, err
		}
		id := *in.UserID
		userID = &id
	} else {
		if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
			return nil, errs.Invalid("invalid email")
		}
		addr = &email
	}

	seen := make(map[uuid.UUID]bool, len(in.DocumentIDs))
	out := make([]model.SigningRequest, 0, len(in.DocumentIDs))
	for _, docID := range in.DocumentIDs {
		if seen[docID] {
			continue
		}
		seen[docID] = true
		d, err := s.docs.Get(ctx, docID)
		if err != nil {
			return nil, err
		}
		if d.Status == model.DocumentSigned {
			return nil, errs.Invalid("document %s is already signed", docID)
		}
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		out = append(out, model.SigningRequest{
			ID:         id,
			DocumentID: docID,
			UserID:     userID,
			Email:      addr,
			Status:     model.RequestPending,
			CreatedAt:  s.now(),
		})
	}
	if err := s.requests.CreateBatch(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns all requests, optionally for one document. Admin only.
func (s *SigningService) List(ctx context.Context, cu model.CurrentUser, documentID *uuid.UUID) ([]model.SigningRequest, error) {
	if !cu.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	return s.requests.List(ctx, model.RequestFilter{DocumentID: documentID})
}

// ListMine returns requests addressed to the caller by id or email.
func (s *SigningService) ListMine(ctx context.Context, cu model.CurrentUser) ([]model.SigningRequest, error) {
	f := model.RequestFilter{UserID: &cu.ID}
	if cu.Email != "" {
		email := cu.Email
		f.Email = &email
	}
	return s.requests.List(ctx, f)
}

// Get returns a request visible to admins and its bound signer.
func (s *SigningService) Get(ctx context.Context, cu model.CurrentUser, id uuid.UUID) (*model.SigningRequest, error) {
	r, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cu.IsAdmin() && !r.BoundTo(cu) {
		return nil, errs.ErrAccessDenied
	}
	return r, nil
}

// ForceSign marks a request SIGNED without stamping. Admin only.
func (s *SigningService) ForceSign(ctx context.Context, cu model.CurrentUser, id uuid.UUID) error {
	if !cu.IsAdmin() {
		return errs.ErrAccessDenied
	}
	return s.requests.MarkSigned(ctx, id, s.now())
}

// Delete removes a request. Admin only.
func (s *SigningService) Delete(ctx context.Context, cu model.CurrentUser, id uuid.UUID) error {
	if !cu.IsAdmin() {
		return errs.ErrAccessDenied
	}
	return s.requests.Delete(ctx, id)
}
