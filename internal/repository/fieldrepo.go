package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/model"
)

// FieldRepository stores field placements per document.
type FieldRepository interface {
	// ReplaceAll atomically swaps every position of a document for the given
	// set and returns how many rows were written. A missing document yields
	// errs.ErrNotFound and changes nothing.
	ReplaceAll(ctx context.Context, documentID uuid.UUID, positions []model.FieldPosition) (int, error)
	// ListByDocument returns positions ordered by page, then field name.
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]model.FieldPosition, error)
}
