package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/pdfdoc"
	"github.com/and161185/signator/internal/pdfdoc/pdftest"
)

type docFixture struct {
	docs     *fakeDocs
	fields   *fakeFields
	requests *fakeRequests
	blobs    *fakeBlobs
	svc      *DocumentService
}

func newDocFixture(t *testing.T) *docFixture {
	t.Helper()
	f := &docFixture{docs: newFakeDocs(), blobs: newFakeBlobs()}
	f.fields = newFakeFields(f.docs)
	f.requests = newFakeRequests(f.docs)
	f.svc = NewDocumentService(f.docs, f.fields, f.requests, f.blobs, 1<<20, zaptest.NewLogger(t))
	return f
}

func TestDocuments_Upload(t *testing.T) {
	t.Parallel()
	f := newDocFixture(t)
	ctx := context.Background()
	a := admin()
	pdf := pdftest.Build(pdftest.Letter("one"), pdftest.Letter("two"))

	_, err := f.svc.Upload(ctx, signer("u@example.com"), UploadInput{Title: "x", Filename: "x.pdf", Data: pdf})
	require.ErrorIs(t, err, errs.ErrAccessDenied)

	_, err = f.svc.Upload(ctx, a, UploadInput{Title: "x", Filename: "x.pdf"})
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = f.svc.Upload(ctx, a, UploadInput{Title: "x", Filename: "x.pdf", Data: []byte("not a pdf")})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	require.Empty(t, f.blobs.data)

	d, err := f.svc.Upload(ctx, a, UploadInput{Title: "  ", Filename: `..\..\evil/Lease.pdf`, Data: pdf})
	require.NoError(t, err)
	require.Equal(t, "Lease", d.Title)
	require.Equal(t, "Lease.pdf", d.Filename)
	require.Equal(t, model.DocumentDraft, d.Status)
	require.Equal(t, a.ID, d.OwnerID)
	require.True(t, strings.HasPrefix(d.StorageKey, "documents/"))
	require.NotContains(t, d.StorageKey, "Lease")
	require.Equal(t, pdf, f.blobs.data[d.StorageKey])

	small := NewDocumentService(f.docs, f.fields, f.requests, f.blobs, 10, zap.NewNop())
	_, err = small.Upload(ctx, a, UploadInput{Title: "big", Filename: "big.pdf", Data: pdf})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestDocuments_Upload_RowFailureRemovesBlob(t *testing.T) {
	t.Parallel()
	f := newDocFixture(t)
	f.docs.createErr = errors.New("db down")

	_, err := f.svc.Upload(context.Background(), admin(), UploadInput{
		Title: "x", Filename: "x.pdf", Data: pdftest.Build(pdftest.Letter("x")),
	})
	require.Error(t, err)
	require.Empty(t, f.blobs.data)
	require.Len(t, f.blobs.deleted, 1)
}

func TestDocuments_AccessRules(t *testing.T) {
	t.Parallel()
	f := newDocFixture(t)
	ctx := context.Background()
	a := admin()
	d, err := f.svc.Upload(ctx, a, UploadInput{Title: "T", Filename: "t.pdf", Data: pdftest.Build(pdftest.Letter("x"))})
	require.NoError(t, err)

	jane := signer("jane@example.com")
	_, _, err = f.svc.Open(ctx, jane, d.ID)
	require.ErrorIs(t, err, errs.ErrAccessDenied)

	email := jane.Email
	require.NoError(t, f.requests.CreateBatch(ctx, []model.SigningRequest{{
		ID: uuid.Must(uuid.NewV4()), DocumentID: d.ID, Email: &email, Status: model.RequestPending,
	}}))
	got, data, err := f.svc.Open(ctx, jane, d.ID)
	require.NoError(t, err)
	require.Equal(t, d.ID, got.ID)
	require.NotEmpty(t, data)

	_, _, err = f.svc.Open(ctx, a, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.List(ctx, jane)
	require.ErrorIs(t, err, errs.ErrAccessDenied)
	list, err := f.svc.List(ctx, a)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.ErrorIs(t, f.svc.Delete(ctx, jane, d.ID), errs.ErrAccessDenied)
	require.ErrorIs(t, f.svc.MarkReady(ctx, jane, d.ID), errs.ErrAccessDenied)
}

func TestDocuments_MarkReady(t *testing.T) {
	t.Parallel()
	f := newDocFixture(t)
	ctx := context.Background()
	a := admin()
	d, err := f.svc.Upload(ctx, a, UploadInput{Title: "T", Filename: "t.pdf", Data: pdftest.Build(pdftest.Letter("x"))})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkReady(ctx, a, d.ID))
	got, err := f.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, model.DocumentReady, got.Status)

	require.ErrorIs(t, f.svc.MarkReady(ctx, a, d.ID), errs.ErrInvalidInput)
}

func TestDocuments_Delete(t *testing.T) {
	t.Parallel()
	f := newDocFixture(t)
	ctx := context.Background()
	a := admin()
	d, err := f.svc.Upload(ctx, a, UploadInput{Title: "T", Filename: "t.pdf", Data: pdftest.Build(pdftest.Letter("x"))})
	require.NoError(t, err)

	f.blobs.deleteErr = errors.New("bucket gone")
	require.NoError(t, f.svc.Delete(ctx, a, d.ID), "blob cleanup is best-effort")
	_, err = f.docs.Get(ctx, d.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Equal(t, []string{d.StorageKey}, f.blobs.deleted)

	require.ErrorIs(t, f.svc.Delete(ctx, a, d.ID), errs.ErrNotFound)
}

func TestDocuments_MetadataAndPage(t *testing.T) {
	t.Parallel()
	f := newDocFixture(t)
	ctx := context.Background()
	a := admin()
	d, err := f.svc.Upload(ctx, a, UploadInput{Title: "T", Filename: "t.pdf", Data: pdftest.Build(
		pdftest.Page{W: 612, H: 792, Text: "one"},
		pdftest.Page{W: 842, H: 595, Text: "two"},
	)})
	require.NoError(t, err)

	_, err = f.fields.ReplaceAll(ctx, d.ID, []model.FieldPosition{
		{ID: uuid.Must(uuid.NewV4()), Page: 2, Field: model.FieldSignature, X: 1, Y: 2},
	})
	require.NoError(t, err)

	md, err := f.svc.Metadata(ctx, a, d.ID)
	require.NoError(t, err)
	require.Equal(t, 2, md.Info.Pages)
	require.InDelta(t, 842, md.Info.Dims[1].W, 0.01)
	require.Len(t, md.Positions, 1)

	_, err = f.svc.Metadata(ctx, signer("x@example.com"), d.ID)
	require.ErrorIs(t, err, errs.ErrAccessDenied)

	page, err := f.svc.Page(ctx, a, d.ID, 2)
	require.NoError(t, err)
	info, err := pdfdoc.Inspect(page)
	require.NoError(t, err)
	require.Equal(t, 1, info.Pages)

	_, err = f.svc.Page(ctx, a, d.ID, 3)
	require.ErrorIs(t, err, errs.ErrInvalidPageNumber)
}
