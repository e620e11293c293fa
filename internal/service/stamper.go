package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/signator/internal/blob"
	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/geometry"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/pdfdoc"
	"github.com/and161185/signator/internal/repository"
)

// Text styles per field.
const (
	signatureFontSize = 16
	signatureColor    = "#1f3a93"
)

// DefaultTimeFormat renders the signedAt field.
const DefaultTimeFormat = "Jan 2, 2006 3:04 PM"

// Renderer draws marks onto a PDF.
type Renderer interface {
	Stamp(src []byte, marks []pdfdoc.Mark) ([]byte, error)
}

var _ Renderer = pdfdoc.Stamper{}

// SignInput is a signer's request to stamp one document.
type SignInput struct {
	RequestID  uuid.UUID
	DocumentID uuid.UUID
	SignerName string
	Signature  string
}

// StamperService produces signed copies of documents.
type StamperService struct {
	docs       repository.DocumentRepository
	fields     repository.FieldRepository
	requests   repository.SigningRequestRepository
	blobs      blob.Store
	render     Renderer
	timeFormat string
	log        *zap.Logger
	now        func() time.Time
}

// NewStamperService constructs StamperService. An empty timeFormat takes
// DefaultTimeFormat.
func NewStamperService(
	docs repository.DocumentRepository,
	fields repository.FieldRepository,
	requests repository.SigningRequestRepository,
	blobs blob.Store,
	render Renderer,
	timeFormat string,
	log *zap.Logger,
) *StamperService {
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}
	return &StamperService{
		docs: docs, fields: fields, requests: requests, blobs: blobs, render: render,
		timeFormat: timeFormat, log: log, now: time.Now,
	}
}

// Sign stamps the signer's name, the signing time and the typed signature at
// the document's field positions, stores the result as a new SIGNED document
// and completes the request. The source document is left untouched.
func (s *StamperService) Sign(ctx context.Context, cu model.CurrentUser, in SignInput) (model.SignedOutput, error) {
	name := strings.TrimSpace(in.SignerName)
	sig := strings.TrimSpace(in.Signature)
	if name == "" || sig == "" {
		return model.SignedOutput{}, errs.Invalid("userName and signature are required")
	}

	req, err := s.requests.Get(ctx, in.RequestID)
	if err != nil {
		return model.SignedOutput{}, err
	}
	if !req.BoundTo(cu) || req.DocumentID != in.DocumentID {
		return model.SignedOutput{}, errs.ErrAccessDenied
	}
	if req.Status != model.RequestPending {
		return model.SignedOutput{}, errs.ErrAlreadySigned
	}

	src, err := s.docs.Get(ctx, in.DocumentID)
	if err != nil {
		return model.SignedOutput{}, err
	}
	data, err := s.blobs.Get(ctx, src.StorageKey)
	if err != nil {
		return model.SignedOutput{}, err
	}
	info, err := pdfdoc.Inspect(data)
	if err != nil {
		return model.SignedOutput{}, err
	}
	positions, err := s.fields.ListByDocument(ctx, src.ID)
	if err != nil {
		return model.SignedOutput{}, err
	}

	now := s.now()
	texts := map[model.FieldName]string{
		model.FieldSignerName: "Signed by: " + name,
		model.FieldSignedAt:   "Signed at: " + now.Format(s.timeFormat),
		model.FieldSignature:  "Signature: " + sig,
	}
	marks := s.layout(src.ID, info, positions, texts)

	out, err := s.render.Stamp(data, marks)
	if err != nil {
		return model.SignedOutput{}, err
	}

	key, err := blob.NewKey(now)
	if err != nil {
		return model.SignedOutput{}, err
	}
	if err := s.blobs.Put(ctx, key, out); err != nil {
		return model.SignedOutput{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		discardBlob(ctx, s.blobs, s.log, key)
		return model.SignedOutput{}, err
	}
	signed := &model.Document{
		ID:         id,
		Title:      src.Title + " (Signed)",
		Filename:   signedFilename(src.Filename),
		StorageKey: key,
		Status:     model.DocumentSigned,
		OwnerID:    cu.ID,
	}
	if err := s.requests.Complete(ctx, req.ID, signed, now); err != nil {
		discardBlob(ctx, s.blobs, s.log, key)
		return model.SignedOutput{}, err
	}

	s.log.Info("document signed",
		zap.String("request_id", req.ID.String()),
		zap.String("source_id", src.ID.String()),
		zap.String("signed_id", signed.ID.String()),
		zap.Int("marks", len(marks)),
	)
	return model.SignedOutput{DocumentID: signed.ID, URL: FileURL(signed.ID)}, nil
}

// layout maps stored positions to marks in PDF space. The reference preview
// size comes from the first position; positions on missing pages are skipped.
func (s *StamperService) layout(
	docID uuid.UUID, info pdfdoc.Info, positions []model.FieldPosition, texts map[model.FieldName]string,
) []pdfdoc.Mark {
	if len(positions) == 0 {
		return nil
	}
	ref := geometry.Size{W: positions[0].PreviewWidth, H: positions[0].PreviewHeight}

	marks := make([]pdfdoc.Mark, 0, len(positions))
	for _, p := range positions {
		size, ok := info.PageSize(p.Page)
		if !ok {
			s.log.Warn("field on missing page skipped",
				zap.String("document_id", docID.String()),
				zap.Int("page", p.Page),
				zap.Int("pages", info.Pages),
				zap.String("field", string(p.Field)),
			)
			continue
		}
		at, fb := geometry.MapToSource(geometry.Point{X: p.X, Y: p.Y}, size, ref)
		if fb.Any() {
			s.log.Warn("preview size unusable, scale 1 used",
				zap.String("document_id", docID.String()),
				zap.Int("page", p.Page),
				zap.String("field", string(p.Field)),
				zap.Bool("width", fb.Width),
				zap.Bool("height", fb.Height),
			)
		}
		m := pdfdoc.Mark{
			Page:     p.Page,
			Text:     texts[p.Field],
			X:        at.X,
			Y:        at.Y,
			Font:     pdfdoc.DefaultFont,
			FontSize: pdfdoc.DefaultFontSize,
			Color:    pdfdoc.DefaultColor,
		}
		if p.Field == model.FieldSignature {
			m.FontSize = signatureFontSize
			m.Color = signatureColor
		}
		marks = append(marks, m)
	}
	return marks
}

// FileURL is the download route of a document.
func FileURL(id uuid.UUID) string {
	return "/api/documents/" + id.String() + "/file"
}

func signedFilename(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".pdf"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + "_signed" + ext
}

// discardBlob deletes a blob best-effort.
func discardBlob(ctx context.Context, blobs blob.Store, log *zap.Logger, key string) {
	if key == "" {
		return
	}
	if err := blobs.Delete(ctx, key); err != nil && !errors.Is(err, errs.ErrNotFound) {
		log.Warn("blob delete failed", zap.String("key", key), zap.Error(err))
	}
}
