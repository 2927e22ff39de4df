package postgres

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/openregulatory/licensure/internal/config"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
)

// Migrator applies schema migrations from a directory of SQL files.  It opens
// its own short-lived database/sql connection through the pgx stdlib driver;
// the pgx pool is not involved.
type Migrator struct {
	cfg    config.DatabaseConfig
	logger logging.Logger
}

// NewMigrator creates a Migrator for the given database.
func NewMigrator(cfg config.DatabaseConfig, log logging.Logger) *Migrator {
	return &Migrator{cfg: cfg, logger: log}
}

// Up applies all pending migrations from migrationsDir.  A database already
// at the latest version is not an error.
func (m *Migrator) Up(migrationsDir string) error {
	db, err := sql.Open("pgx", BuildDSN(m.cfg))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "opening migration connection")
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "creating migration driver")
	}

	mig, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "creating migrate instance")
	}

	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		version, _, _ := mig.Version()
		return errors.Wrap(err, errors.ErrCodeDatabaseError,
			fmt.Sprintf("running migrations (current version: %d)", version))
	}

	version, dirty, err := mig.Version()
	if err != nil && err != migrate.ErrNilVersion {
		m.logger.Warn("could not read migration version", logging.Err(err))
	}
	m.logger.Info("database migrations applied",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}
