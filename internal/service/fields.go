package service

import (
	"context"
	"math"
	"sort"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/repository"
)

// FieldService stores where signature fields go on a document.
type FieldService struct {
	docs   repository.DocumentRepository
	fields repository.FieldRepository
}

// NewFieldService constructs FieldService.
func NewFieldService(docs repository.DocumentRepository, fields repository.FieldRepository) *FieldService {
	return &FieldService{docs: docs, fields: fields}
}

func finiteNonNeg(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidatePositions checks a payload without touching storage.
func ValidatePositions(p model.PositionsPayload) error {
	if !finiteNonNeg(p.PreviewWidth) || !finiteNonNeg(p.PreviewHeight) {
		return errs.Invalid("preview size must be a finite number >= 0")
	}
	for page, fields := range p.Pages {
		if page < 1 {
			return errs.Invalid("page %d: page numbers start at 1", page)
		}
		for name, at := range fields {
			if !name.Valid() {
				return errs.Invalid("page %d: unknown field %q", page, name)
			}
			if !finiteNonNeg(at.X) || !finiteNonNeg(at.Y) {
				return errs.Invalid("page %d field %s: coordinates must be finite numbers >= 0", page, name)
			}
		}
	}
	return nil
}

// ReplaceAll swaps the document's whole field layout for p and returns the
// number of positions written. Admin only; signed documents are immutable.
func (s *FieldService) ReplaceAll(
	ctx context.Context, cu model.CurrentUser, documentID uuid.UUID, p model.PositionsPayload,
) (int, error) {
	if !cu.IsAdmin() {
		return 0, errs.ErrAccessDenied
	}
	if err := ValidatePositions(p); err != nil {
		return 0, err
	}
	d, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if d.Status == model.DocumentSigned {
		return 0, errs.Invalid("signed documents cannot be edited")
	}

	rows, err := flatten(documentID, p)
	if err != nil {
		return 0, err
	}
	return s.fields.ReplaceAll(ctx, documentID, rows)
}

// flatten turns the page map into rows in (page, field) order, stamping the
// single preview size on each.
func flatten(documentID uuid.UUID, p model.PositionsPayload) ([]model.FieldPosition, error) {
	pages := make([]int, 0, len(p.Pages))
	for page := range p.Pages {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	var out []model.FieldPosition
	for _, page := range pages {
		names := make([]model.FieldName, 0, len(p.Pages[page]))
		for name := range p.Pages[page] {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
		for _, name := range names {
			id, err := uuid.NewV4()
			if err != nil {
				return nil, err
			}
			at := p.Pages[page][name]
			out = append(out, model.FieldPosition{
				ID:            id,
				DocumentID:    documentID,
				Page:          page,
				Field:         name,
				X:             at.X,
				Y:             at.Y,
				PreviewWidth:  p.PreviewWidth,
				PreviewHeight: p.PreviewHeight,
			})
		}
	}
	return out, nil
}

// List returns the document's positions. Admin only.
func (s *FieldService) List(ctx context.Context, cu model.CurrentUser, documentID uuid.UUID) ([]model.FieldPosition, error) {
	if !cu.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	if _, err := s.docs.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.fields.ListByDocument(ctx, documentID)
}
