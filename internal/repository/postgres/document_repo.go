package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
)

// DocumentRepo implements DocumentRepository using PostgreSQL.
type DocumentRepo struct{ db *DB }

// NewDocumentRepo constructs a document repository.
func NewDocumentRepo(db *DB) *DocumentRepo { return &DocumentRepo{db: db} }

const documentCols = `id, title, filename, storage_key, status, summary, owner_id, created_at`

func scanDocument(row pgx.Row) (*model.Document, error) {
	var (
		d      model.Document
		status string
	)
	if err := row.Scan(&d.ID, &d.Title, &d.Filename, &d.StorageKey, &status, &d.Summary, &d.OwnerID, &d.CreatedAt); err != nil {
		return nil, err
	}
	st, err := model.ParseDocumentStatus(status)
	if err != nil {
		return nil, err
	}
	d.Status = st
	return &d, nil
}

const insertDocument = `
INSERT INTO documents (id, title, filename, storage_key, status, owner_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`

// Create inserts a document row and fills CreatedAt.
func (r *DocumentRepo) Create(ctx context.Context, d *model.Document) error {
	err := r.db.Pool.QueryRow(ctx, insertDocument,
		d.ID, d.Title, d.Filename, d.StorageKey, string(d.Status), d.OwnerID,
	).Scan(&d.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get selects a document by ID.
func (r *DocumentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	const q = `SELECT ` + documentCols + ` FROM documents WHERE id=$1`
	d, err := scanDocument(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return d, err
}

// List returns all documents, newest first.
func (r *DocumentRepo) List(ctx context.Context) ([]model.Document, error) {
	const q = `SELECT ` + documentCols + ` FROM documents ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// TransitionStatus performs a compare-and-set on status.
func (r *DocumentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.DocumentStatus) error {
	const q = `UPDATE documents SET status=$3 WHERE id=$1 AND status=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return errs.Invalid("document is not %s", from)
}

// SetSummary stores the cached summary.
func (r *DocumentRepo) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	const q = `UPDATE documents SET summary=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, summary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the row; positions and requests go with it via FK cascade.
func (r *DocumentRepo) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	const q = `DELETE FROM documents WHERE id=$1 RETURNING storage_key`
	var key string
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", err
	}
	return key, nil
}
