package dal

import (
	"embed"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
)

//go:embed migrations
var migrationFS embed.FS

// runMigrations applies the embedded migrations in dir to the database at dbURL
func runMigrations(dir, dbURL string) error {
	src, err := iofs.New(migrationFS, "migrations/"+dir)
	if err != nil {
		return errors.Wrap(err, "open embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return errors.Wrap(err, "create migrator")
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrator", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrapf(err, "apply %s migrations", dir)
	}

	version, dirty, err := m.Version()
	if err == nil {
		logger.Info("Database schema ready", "dialect", dir, "version", version, "dirty", dirty)
	}
	return nil
}
