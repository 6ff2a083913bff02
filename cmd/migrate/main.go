package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/config"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recently applied migration instead of applying pending ones")
	dir := flag.String("dir", "migrations", "directory containing the numbered .up.sql/.down.sql migration files")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		return
	}

	log, err := logger.NewLogger()
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		return
	}

	log.Infow("connecting to database", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)

	sqlDB, err := sql.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	defer sqlDB.Close()

	driver, err := migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{})
	if err != nil {
		log.Fatalw("failed to open migration driver", "error", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+*dir, "postgres", driver)
	if err != nil {
		log.Fatalw("failed to initialize migrator", "error", err)
	}

	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalw("migration failed", "error", err)
	}

	version, dirty, verErr := m.Version()
	if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
		log.Fatalw("failed to read schema version", "error", verErr)
	}
	log.Infow("migration complete", "version", version, "dirty", dirty)
}
