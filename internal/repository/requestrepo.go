package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/model"
)

// SigningRequestRepository stores signing requests.
type SigningRequestRepository interface {
	// CreateBatch inserts all requests in one transaction; an unknown
	// document yields errs.ErrNotFound.
	CreateBatch(ctx context.Context, reqs []model.SigningRequest) error
	// Get loads a request by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.SigningRequest, error)
	// List returns requests matching the filter, newest first. UserID and
	// Email match either recipient form.
	List(ctx context.Context, f model.RequestFilter) ([]model.SigningRequest, error)
	// MarkSigned flips PENDING to SIGNED; a signed request yields errs.ErrAlreadySigned.
	MarkSigned(ctx context.Context, id uuid.UUID, at time.Time) error
	// Complete inserts the signed document and flips the request to SIGNED,
	// pointing it at that document, in one transaction.
	Complete(ctx context.Context, requestID uuid.UUID, signed *model.Document, at time.Time) error
	// Delete removes a request.
	Delete(ctx context.Context, id uuid.UUID) error
}
