package database

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// MigrationRunner applies the diagnostic_records schema migrations.
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner creates a migration runner over the file-based source.
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}
	return &MigrationRunner{migrate: m, log: logger}, nil
}

// Up runs all pending migrations.
func (mr *MigrationRunner) Up() error {
	if err := mr.migrate.Up(); err != nil {
		if err == migrate.ErrNoChange {
			mr.log.Info("No pending migrations")
			return nil
		}
		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, err := mr.migrate.Version()
	if err != nil {
		mr.log.WithError(err).Warn("Could not read migration version")
		return nil
	}
	mr.log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("Migrations applied")
	return nil
}

// Close closes the migration runner.
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}
