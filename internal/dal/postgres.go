package dal

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
)

const (
	pingAttempts   = 5
	pingRetryDelay = 5 * time.Second
	pingTimeout    = 60 * time.Second
)

// NewPostgresDAL connects to PostgreSQL, applies migrations and optionally seeds demo data.
// connString must be a postgres:// URL so the migrator can use it too.
func NewPostgresDAL(ctx context.Context, connString string, seed bool) (*SQLStore, error) {
	db, err := sqlx.Open("postgres", connString)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}

	// Sized for a small HA cluster; recycle connections so failovers are picked up
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	// DNS for the database service can lag behind pod startup
	if err := pingWithRetry(ctx, db, pingAttempts, pingRetryDelay); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations("postgres", connString); err != nil {
		db.Close()
		return nil, err
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

func pingWithRetry(ctx context.Context, db *sqlx.DB, attempts int, delay time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		logger.Warn("Database ping failed", "attempt", i+1, "error", lastErr)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "waiting for database")
			case <-time.After(delay):
			}
		}
	}
	return errors.Wrapf(lastErr, "ping database after %d attempts", attempts)
}
