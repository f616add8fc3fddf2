package main

import (
	"context"
	"fmt"

	"github.com/set-night/omegachat"
	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/repository"
	"github.com/set-night/omegachat/internal/repository/postgres"
	"github.com/set-night/omegachat/internal/repository/sqlite"
	"github.com/set-night/omegachat/internal/service"
)

func migrateDatabase(databaseURL string) error {
	migrations, err := repository.Migrations(omegachat.MigrationsFS, databaseURL)
	if err != nil {
		return err
	}
	return repository.RunMigrations(databaseURL, migrations)
}

// openStore opens the store selected by the url scheme.
func openStore(ctx context.Context, databaseURL string) (service.Store, error) {
	switch config.DatabaseDialect(databaseURL) {
	case config.DialectSQLite:
		store, err := sqlite.Open(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DialectPostgres:
		pool, err := repository.NewPool(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", databaseURL)
	}
}
