package httpserver

import (
	"context"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

const (
	adminToken = "admin-token"
	userToken  = "user-token"
)

var (
	adminUser = model.CurrentUser{ID: uuid.Must(uuid.NewV4()), Email: "admin@example.com", Role: model.RoleAdmin}
	plainUser = model.CurrentUser{ID: uuid.Must(uuid.NewV4()), Email: "jane@example.com", Role: model.RoleUser}
)

type fakeAuth struct {
	gotIP    string
	loginErr error
	regErr   error
}

var _ Auth = (*fakeAuth)(nil)

func (f *fakeAuth) Authenticate(token string) (model.CurrentUser, error) {
	switch token {
	case adminToken:
		return adminUser, nil
	case userToken:
		return plainUser, nil
	}
	return model.CurrentUser{}, errs.ErrUnauthorized
}

func (f *fakeAuth) Register(_ context.Context, _, _, _ string) (uuid.UUID, error) {
	if f.regErr != nil {
		return uuid.Nil, f.regErr
	}
	return uuid.Must(uuid.NewV4()), nil
}

func (f *fakeAuth) LoginWithIP(_ context.Context, email, _, ip string) (model.Tokens, model.User, error) {
	f.gotIP = ip
	if f.loginErr != nil {
		return model.Tokens{}, model.User{}, f.loginErr
	}
	return model.Tokens{AccessToken: "jwt"}, model.User{ID: plainUser.ID, Email: email, Role: model.RoleUser}, nil
}

// Stubs embed the interface; unimplemented methods panic, which the recover
// middleware turns into 500.
type stubDocs struct {
	Documents
	upload   service.UploadInput
	uploadFn func(service.UploadInput) (*model.Document, error)
	openDoc  *model.Document
	openData []byte
	delErr   error
	pageErr  error
	listErr  error
}

func (s *stubDocs) Upload(_ context.Context, _ model.CurrentUser, in service.UploadInput) (*model.Document, error) {
	s.upload = in
	return s.uploadFn(in)
}

func (s *stubDocs) List(context.Context, model.CurrentUser) ([]model.Document, error) {
	return nil, s.listErr
}

func (s *stubDocs) Open(context.Context, model.CurrentUser, uuid.UUID) (*model.Document, []byte, error) {
	if s.openDoc == nil {
		return nil, nil, errs.ErrNotFound
	}
	return s.openDoc, s.openData, nil
}

func (s *stubDocs) Delete(context.Context, model.CurrentUser, uuid.UUID) error { return s.delErr }

func (s *stubDocs) Page(_ context.Context, _ model.CurrentUser, _ uuid.UUID, page int) ([]byte, error) {
	if s.pageErr != nil {
		return nil, s.pageErr
	}
	return []byte("%PDF-page-" + strconv.Itoa(page)), nil
}

type stubFields struct {
	Fields
	got model.PositionsPayload
}

func (s *stubFields) ReplaceAll(_ context.Context, _ model.CurrentUser, _ uuid.UUID, p model.PositionsPayload) (int, error) {
	s.got = p
	n := 0
	for _, fs := range p.Pages {
		n += len(fs)
	}
	return n, nil
}

type stubRequests struct {
	Requests
	gotDocID *uuid.UUID
	created  service.CreateRequestsInput
}

func (s *stubRequests) List(_ context.Context, _ model.CurrentUser, documentID *uuid.UUID) ([]model.SigningRequest, error) {
	s.gotDocID = documentID
	return nil, nil
}

func (s *stubRequests) Create(_ context.Context, _ model.CurrentUser, in service.CreateRequestsInput) ([]model.SigningRequest, error) {
	s.created = in
	out := make([]model.SigningRequest, 0, len(in.DocumentIDs))
	for _, id := range in.DocumentIDs {
		out = append(out, model.SigningRequest{ID: uuid.Must(uuid.NewV4()), DocumentID: id, UserID: in.UserID, Status: model.RequestPending})
	}
	return out, nil
}

func (s *stubRequests) ForceSign(context.Context, model.CurrentUser, uuid.UUID) error {
	return errs.ErrAlreadySigned
}

type stubSigner struct {
	got service.SignInput
	err error
}

func (s *stubSigner) Sign(_ context.Context, _ model.CurrentUser, in service.SignInput) (model.SignedOutput, error) {
	s.got = in
	if s.err != nil {
		return model.SignedOutput{}, s.err
	}
	id := uuid.Must(uuid.NewV4())
	return model.SignedOutput{DocumentID: id, URL: service.FileURL(id)}, nil
}

type stubSummaries struct {
	Summaries
	opts service.SummaryOptions
}

func (s *stubSummaries) Regenerate(_ context.Context, _ model.CurrentUser, _ uuid.UUID, opts service.SummaryOptions) (string, error) {
	s.opts = opts
	return "short summary", nil
}

type stubUsers struct {
	Users
	gotRole string
}

func (s *stubUsers) SetRole(_ context.Context, _ model.CurrentUser, _ uuid.UUID, role string) error {
	s.gotRole = role
	return nil
}

func newTestServer(t *testing.T, d Deps) *Server {
	t.Helper()
	if d.Auth == nil {
		d.Auth = &fakeAuth{}
	}
	return New(zaptest.NewLogger(t), d, 1<<20)
}

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}
