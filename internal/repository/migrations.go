package repository

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jlillywh/hydrosim/pkg/config"
	"github.com/jlillywh/hydrosim/pkg/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate применяет встроенные миграции, если в конфигурации включён auto_migrate
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg *config.DatabaseConfig) error {
	return database.RunMigrations(ctx, pool, cfg, migrationsFS, "migrations")
}
