package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
)

// RequestRepo implements SigningRequestRepository using PostgreSQL.
type RequestRepo struct{ db *DB }

// NewRequestRepo constructs a signing request repository.
func NewRequestRepo(db *DB) *RequestRepo { return &RequestRepo{db: db} }

const requestCols = `id, document_id, user_id, email, status, signed_at, created_at`

func scanRequest(row pgx.Row) (*model.SigningRequest, error) {
	var (
		sr     model.SigningRequest
		status string
	)
	if err := row.Scan(&sr.ID, &sr.DocumentID, &sr.UserID, &sr.Email, &status, &sr.SignedAt, &sr.CreatedAt); err != nil {
		return nil, err
	}
	st, err := model.ParseRequestStatus(status)
	if err != nil {
		return nil, err
	}
	sr.Status = st
	return &sr, nil
}

// CreateBatch inserts all requests atomically.
func (r *RequestRepo) CreateBatch(ctx context.Context, reqs []model.SigningRequest) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `
INSERT INTO signing_requests (id, document_id, user_id, email, status)
VALUES ($1,$2,$3,$4,$5)`
	for i, sr := range reqs {
		if _, err = tx.Exec(ctx, ins, sr.ID, sr.DocumentID, sr.UserID, sr.Email, string(sr.Status)); err != nil {
			if isFKViolation(err) {
				return fmt.Errorf("request[%d]: %w", i, errs.ErrNotFound)
			}
			return err
		}
	}
	return nil
}

// Get selects a request by ID.
func (r *RequestRepo) Get(ctx context.Context, id uuid.UUID) (*model.SigningRequest, error) {
	const q = `SELECT ` + requestCols + ` FROM signing_requests WHERE id=$1`
	sr, err := scanRequest(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return sr, err
}

// List returns requests matching f, newest first.
func (r *RequestRepo) List(ctx context.Context, f model.RequestFilter) ([]model.SigningRequest, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.DocumentID != nil {
		where = append(where, "document_id="+arg(*f.DocumentID))
	}
	var who []string
	if f.UserID != nil {
		who = append(who, "user_id="+arg(*f.UserID))
	}
	if f.Email != nil {
		who = append(who, "email="+arg(strings.ToLower(*f.Email)))
	}
	if len(who) > 0 {
		where = append(where, "("+strings.Join(who, " OR ")+")")
	}

	q := `SELECT ` + requestCols + ` FROM signing_requests`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SigningRequest
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sr)
	}
	return out, rows.Err()
}

const flipSigned = `
UPDATE signing_requests SET status='SIGNED', signed_at=$2
WHERE id=$1 AND status='PENDING'`

// MarkSigned flips a PENDING request to SIGNED exactly once.
func (r *RequestRepo) MarkSigned(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, flipSigned, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return errs.ErrAlreadySigned
}

// Complete inserts the signed document and repoints the request at it.
// Zero affected rows on the flip means someone else signed first; the
// whole transaction rolls back.
func (r *RequestRepo) Complete(
	ctx context.Context, requestID uuid.UUID, signed *model.Document, at time.Time,
) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if err = tx.QueryRow(ctx, insertDocument,
		signed.ID, signed.Title, signed.Filename, signed.StorageKey, string(signed.Status), signed.OwnerID,
	).Scan(&signed.CreatedAt); err != nil {
		return err
	}

	const upd = `
UPDATE signing_requests SET status='SIGNED', signed_at=$2, document_id=$3
WHERE id=$1 AND status='PENDING'`
	tag, err := tx.Exec(ctx, upd, requestID, at, signed.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrAlreadySigned
	}
	return nil
}

// Delete removes a request.
func (r *RequestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM signing_requests WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
