package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/model"
)

// DocumentRepository provides access to document rows.
type DocumentRepository interface {
	// Create inserts a document row.
	Create(ctx context.Context, d *model.Document) error
	// Get loads a document by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
	// List returns all documents, newest first.
	List(ctx context.Context) ([]model.Document, error)
	// TransitionStatus moves a document from one status to another; a
	// document no longer in from yields errs.ErrInvalidInput.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.DocumentStatus) error
	// SetSummary caches the AI summary.
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error
	// Delete removes the row (cascading to positions and requests) and
	// returns the blob key it referenced.
	Delete(ctx context.Context, id uuid.UUID) (storageKey string, err error)
}
