// cmd/migrate applies the postgres migrations in db/migrations.
package main

import (
	"errors"
	"flag"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/tysiac/internal/config"
)

func main() {
	dir := flag.String("dir", "db/migrations", "migrations directory")
	down := flag.Bool("down", false, "roll back one migration instead of applying all")
	flag.Parse()

	logger := logrus.New()
	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Warnf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if cfg.StoreDriver != config.DriverPostgres {
		logger.Fatalf("migrations only apply to STORE_DRIVER=%s; sqlite applies its schema on open", config.DriverPostgres)
	}

	m, err := migrate.New("file://"+*dir, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("migration setup failed: %v", err)
	}
	defer m.Close()

	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatalf("database migration failed: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Fatalf("read migration version: %v", err)
	}
	logger.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("database migrations applied")
}
