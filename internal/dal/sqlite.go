package dal

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDAL opens the SQLite file at dbPath, applies migrations and optionally seeds demo data
func NewSQLiteDAL(ctx context.Context, dbPath string, seed bool) (*SQLStore, error) {
	if err := runMigrations("sqlite", "sqlite3://"+dbPath); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}

	store := &SQLStore{db: db}
	if seed {
		if err := store.seedIfEmpty(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return store, nil
}
