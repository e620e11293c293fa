package service

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/signator/internal/blob"
	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/pdfdoc"
	"github.com/and161185/signator/internal/repository"
)

// DocumentService manages uploaded PDFs and their lifecycle.
type DocumentService struct {
	docs     repository.DocumentRepository
	fields   repository.FieldRepository
	requests repository.SigningRequestRepository
	blobs    blob.Store
	maxBytes int64
	log      *zap.Logger
	now      func() time.Time
}

// NewDocumentService constructs DocumentService. maxBytes caps uploads.
func NewDocumentService(
	docs repository.DocumentRepository,
	fields repository.FieldRepository,
	requests repository.SigningRequestRepository,
	blobs blob.Store,
	maxBytes int64,
	log *zap.Logger,
) *DocumentService {
	return &DocumentService{
		docs: docs, fields: fields, requests: requests, blobs: blobs,
		maxBytes: maxBytes, log: log, now: time.Now,
	}
}

// UploadInput is a new template PDF.
type UploadInput struct {
	Title    string
	Filename string
	Data     []byte
}

// Metadata describes a document's pages and its placed fields.
type Metadata struct {
	Info      pdfdoc.Info
	Positions []model.FieldPosition
}

// Upload validates and stores a PDF as a DRAFT document owned by the caller.
func (s *DocumentService) Upload(ctx context.Context, cu model.CurrentUser, in UploadInput) (*model.Document, error) {
	if !cu.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	if len(in.Data) == 0 {
		return nil, errs.Invalid("file is required")
	}
	if s.maxBytes > 0 && int64(len(in.Data)) > s.maxBytes {
		return nil, errs.Invalid("file exceeds %d bytes", s.maxBytes)
	}
	if _, err := pdfdoc.Inspect(in.Data); err != nil {
		return nil, err
	}

	filename := filepath.Base(strings.ReplaceAll(in.Filename, `\`, "/"))
	if filename == "." || filename == "/" {
		filename = "document.pdf"
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	key, err := blob.NewKey(s.now())
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Put(ctx, key, in.Data); err != nil {
		return nil, err
	}

	d := &model.Document{
		ID:         id,
		Title:      title,
		Filename:   filename,
		StorageKey: key,
		Status:     model.DocumentDraft,
		OwnerID:    cu.ID,
	}
	if err := s.docs.Create(ctx, d); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	return d, nil
}

// List returns every document. Admin only.
func (s *DocumentService) List(ctx context.Context, cu model.CurrentUser) ([]model.Document, error) {
	if !cu.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	return s.docs.List(ctx)
}

// Get loads a document the caller may read: admins, the owner, or a user
// holding a signing request for it.
func (s *DocumentService) Get(ctx context.Context, cu model.CurrentUser, id uuid.UUID) (*model.Document, error) {
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cu.IsAdmin() || d.OwnerID == cu.ID {
		return d, nil
	}
	ok, err := s.assigned(ctx, cu, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrAccessDenied
	}
	return d, nil
}

func (s *DocumentService) assigned(ctx context.Context, cu model.CurrentUser, docID uuid.UUID) (bool, error) {
	f := model.RequestFilter{DocumentID: &docID, UserID: &cu.ID}
	if cu.Email != "" {
		email := cu.Email
		f.Email = &email
	}
	reqs, err := s.requests.List(ctx, f)
	if err != nil {
		return false, err
	}
	return len(reqs) > 0, nil
}

// Open returns a readable document with its PDF bytes.
func (s *DocumentService) Open(ctx context.Context, cu model.CurrentUser, id uuid.UUID) (*model.Document, []byte, error) {
	d, err := s.Get(ctx, cu, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.blobs.Get(ctx, d.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return d, data, nil
}

// Delete removes the document, its positions and requests, then its blob.
// Allowed for admins and the owner.
func (s *DocumentService) Delete(ctx context.Context, cu model.CurrentUser, id uuid.UUID) error {
	if err := s.ownerOrAdmin(ctx, cu, id); err != nil {
		return err
	}
	key, err := s.docs.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.discard(ctx, key)
	return nil
}

// MarkReady moves a DRAFT document to READY.
func (s *DocumentService) MarkReady(ctx context.Context, cu model.CurrentUser, id uuid.UUID) error {
	if err := s.ownerOrAdmin(ctx, cu, id); err != nil {
		return err
	}
	return s.docs.TransitionStatus(ctx, id, model.DocumentDraft, model.DocumentReady)
}

// Metadata reports page count, native page sizes and placed fields. Admin only.
func (s *DocumentService) Metadata(ctx context.Context, cu model.CurrentUser, id uuid.UUID) (Metadata, error) {
	if !cu.IsAdmin() {
		return Metadata{}, errs.ErrAccessDenied
	}
	data, err := s.load(ctx, id)
	if err != nil {
		return Metadata{}, err
	}
	info, err := pdfdoc.Inspect(data)
	if err != nil {
		return Metadata{}, err
	}
	positions, err := s.fields.ListByDocument(ctx, id)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Info: info, Positions: positions}, nil
}

// Page returns a standalone single-page PDF for previews. Admin only.
func (s *DocumentService) Page(ctx context.Context, cu model.CurrentUser, id uuid.UUID, page int) ([]byte, error) {
	if !cu.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	data, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return pdfdoc.ExtractPage(data, page)
}

func (s *DocumentService) load(ctx context.Context, id uuid.UUID) ([]byte, error) {
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.blobs.Get(ctx, d.StorageKey)
}

func (s *DocumentService) ownerOrAdmin(ctx context.Context, cu model.CurrentUser, id uuid.UUID) error {
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	if !cu.IsAdmin() && d.OwnerID != cu.ID {
		return errs.ErrAccessDenied
	}
	return nil
}

func (s *DocumentService) discard(ctx context.Context, key string) {
	discardBlob(ctx, s.blobs, s.log, key)
}
