package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/signator/internal/blob"
	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/limiter"
	"github.com/and161185/signator/internal/llm"
	"github.com/and161185/signator/internal/model"
	"github.com/and161185/signator/internal/repository"
)

type fakeUsers struct {
	byEmail map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail == nil {
		f.byEmail = map[string]*model.User{}
	}
	key := strings.ToLower(u.Email)
	if _, exists := f.byEmail[key]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byEmail[key] = &cpy
	return nil
}
func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}
func (f *fakeUsers) List(context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(f.byEmail))
	for _, u := range f.byEmail {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
func (f *fakeUsers) SetRole(_ context.Context, id uuid.UUID, role model.Role) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Role = role
			return nil
		}
	}
	return errs.ErrNotFound
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakeDocs struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Document

	createErr error
}

var _ repository.DocumentRepository = (*fakeDocs)(nil)

func newFakeDocs(docs ...model.Document) *fakeDocs {
	f := &fakeDocs{byID: map[uuid.UUID]*model.Document{}}
	for i := range docs {
		d := docs[i]
		f.byID[d.ID] = &d
	}
	return f
}

func (f *fakeDocs) Create(_ context.Context, d *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	c := *d
	f.byID[d.ID] = &c
	return nil
}
func (f *fakeDocs) Get(_ context.Context, id uuid.UUID) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *d
	return &c, nil
}
func (f *fakeDocs) List(context.Context) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Document, 0, len(f.byID))
	for _, d := range f.byID {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}
func (f *fakeDocs) TransitionStatus(_ context.Context, id uuid.UUID, from, to model.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if d.Status != from {
		return errs.Invalid("document is %s", d.Status)
	}
	d.Status = to
	return nil
}
func (f *fakeDocs) SetSummary(_ context.Context, id uuid.UUID, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	d.Summary = &summary
	return nil
}
func (f *fakeDocs) Delete(_ context.Context, id uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return "", errs.ErrNotFound
	}
	delete(f.byID, id)
	return d.StorageKey, nil
}

type fakeFields struct {
	byDoc map[uuid.UUID][]model.FieldPosition
	docs  *fakeDocs

	replaceCalls int
}

var _ repository.FieldRepository = (*fakeFields)(nil)

func newFakeFields(docs *fakeDocs) *fakeFields {
	return &fakeFields{byDoc: map[uuid.UUID][]model.FieldPosition{}, docs: docs}
}

func (f *fakeFields) ReplaceAll(ctx context.Context, documentID uuid.UUID, positions []model.FieldPosition) (int, error) {
	f.replaceCalls++
	if _, err := f.docs.Get(ctx, documentID); err != nil {
		return 0, err
	}
	cp := make([]model.FieldPosition, len(positions))
	for i, p := range positions {
		p.DocumentID = documentID
		cp[i] = p
	}
	f.byDoc[documentID] = cp
	return len(cp), nil
}
func (f *fakeFields) ListByDocument(_ context.Context, documentID uuid.UUID) ([]model.FieldPosition, error) {
	out := append([]model.FieldPosition(nil), f.byDoc[documentID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Field < out[j].Field
	})
	return out, nil
}

type fakeRequests struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.SigningRequest
	docs *fakeDocs

	completeErr error
}

var _ repository.SigningRequestRepository = (*fakeRequests)(nil)

func newFakeRequests(docs *fakeDocs, reqs ...model.SigningRequest) *fakeRequests {
	f := &fakeRequests{byID: map[uuid.UUID]*model.SigningRequest{}, docs: docs}
	for i := range reqs {
		r := reqs[i]
		f.byID[r.ID] = &r
	}
	return f
}

func (f *fakeRequests) CreateBatch(ctx context.Context, reqs []model.SigningRequest) error {
	for _, r := range reqs {
		if _, err := f.docs.Get(ctx, r.DocumentID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range reqs {
		r := reqs[i]
		f.byID[r.ID] = &r
	}
	return nil
}
func (f *fakeRequests) Get(_ context.Context, id uuid.UUID) (*model.SigningRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	return &c, nil
}
func (f *fakeRequests) List(_ context.Context, flt model.RequestFilter) ([]model.SigningRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SigningRequest
	for _, r := range f.byID {
		if flt.DocumentID != nil && r.DocumentID != *flt.DocumentID {
			continue
		}
		if flt.UserID != nil || flt.Email != nil {
			byUser := flt.UserID != nil && r.UserID != nil && *r.UserID == *flt.UserID
			byEmail := flt.Email != nil && r.Email != nil && *r.Email == *flt.Email
			if !byUser && !byEmail {
				continue
			}
		}
		out = append(out, *r)
	}
	return out, nil
}
func (f *fakeRequests) MarkSigned(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if r.Status != model.RequestPending {
		return errs.ErrAlreadySigned
	}
	r.Status = model.RequestSigned
	r.SignedAt = &at
	return nil
}
func (f *fakeRequests) Complete(ctx context.Context, requestID uuid.UUID, signed *model.Document, at time.Time) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[requestID]
	if !ok {
		return errs.ErrNotFound
	}
	if r.Status != model.RequestPending {
		return errs.ErrAlreadySigned
	}
	if err := f.docs.Create(ctx, signed); err != nil {
		return err
	}
	r.Status = model.RequestSigned
	r.SignedAt = &at
	r.DocumentID = signed.ID
	return nil
}
func (f *fakeRequests) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeBlobs struct {
	mu   sync.Mutex
	data map[string][]byte

	putErr    error
	deleteErr error
	deleted   []string
}

var _ blob.Store = (*fakeBlobs)(nil)

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{data: map[string][]byte{}} }

func (f *fakeBlobs) Put(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.data[key] = append([]byte(nil), data...)
	return nil
}
func (f *fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}
func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.data, key)
	return nil
}
func (f *fakeBlobs) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, nil
}

type fakeCompleter struct {
	reply string
	err   error
	calls []llm.Request
}

var _ llm.Completer = (*fakeCompleter)(nil)

func (c *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	c.calls = append(c.calls, req)
	return c.reply, c.err
}

func admin() model.CurrentUser {
	return model.CurrentUser{ID: uuid.Must(uuid.NewV4()), Email: "admin@example.com", Role: model.RoleAdmin}
}

func signer(email string) model.CurrentUser {
	return model.CurrentUser{ID: uuid.Must(uuid.NewV4()), Email: email, Role: model.RoleUser}
}
