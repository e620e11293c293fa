// Package migrate applies embedded SQL migrations.
package migrate

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/and161185/signator/migrations"
)

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Up runs all pending migrations from the embedded filesystem.
func Up(ctx context.Context, dsn string) error {
	db, err := open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.UpContext(ctx, db, ".")
}

// Status prints applied and pending migrations via the goose logger.
func Status(ctx context.Context, dsn string) error {
	db, err := open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.StatusContext(ctx, db, ".")
}
