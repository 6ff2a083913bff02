package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/config"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
)

// Migrate applies every pending migration under migrationsDir to the
// configured database. It is safe to call on every process start - a
// schema already at the latest version is a no-op.
func Migrate(cfg *config.Configuration, log *logger.Logger, migrationsDir string) error {
	sqlDB, err := sql.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to open migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Infow("database schema is up to date")
	return nil
}
