package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/signator/internal/errs"
	"github.com/and161185/signator/internal/model"
)

// FieldRepo implements FieldRepository using PostgreSQL.
type FieldRepo struct{ db *DB }

// NewFieldRepo constructs a field position repository.
func NewFieldRepo(db *DB) *FieldRepo { return &FieldRepo{db: db} }

// ReplaceAll deletes every position of the document and inserts the new set
// in one transaction. The document row is locked so concurrent replaces
// serialize; the last one to commit wins.
func (r *FieldRepo) ReplaceAll(
	ctx context.Context, documentID uuid.UUID, positions []model.FieldPosition,
) (n int, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
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

	const lock = `SELECT id FROM documents WHERE id=$1 FOR UPDATE`
	const del = `DELETE FROM field_positions WHERE document_id=$1`
	const ins = `
INSERT INTO field_positions (id, document_id, page_number, field_name, x, y, preview_width, preview_height)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	var locked uuid.UUID
	if err = tx.QueryRow(ctx, lock, documentID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	if _, err = tx.Exec(ctx, del, documentID); err != nil {
		return 0, err
	}
	for _, p := range positions {
		if _, err = tx.Exec(ctx, ins,
			p.ID, documentID, p.Page, string(p.Field), p.X, p.Y, p.PreviewWidth, p.PreviewHeight,
		); err != nil {
			return 0, err
		}
	}
	return len(positions), nil
}

// ListByDocument returns positions ordered by page, then field name.
func (r *FieldRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]model.FieldPosition, error) {
	const q = `
SELECT id, document_id, page_number, field_name, x, y, preview_width, preview_height, created_at
FROM field_positions
WHERE document_id=$1
ORDER BY page_number ASC, field_name ASC`
	rows, err := r.db.Pool.Query(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FieldPosition
	for rows.Next() {
		var (
			p     model.FieldPosition
			field string
		)
		if err = rows.Scan(&p.ID, &p.DocumentID, &p.Page, &field, &p.X, &p.Y,
			&p.PreviewWidth, &p.PreviewHeight, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.Field, err = model.ParseFieldName(field); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
