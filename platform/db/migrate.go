package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"fieldgate_backend/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigrationResult summarizes one applied migration.
type MigrationResult struct {
	Version int64
	Source  string
}

// RunMigrations applies all pending migrations. When dir is set the SQL files
// are read from disk, otherwise from the embedded fallback.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig, dir string, fallback fs.FS) ([]MigrationResult, error) {
	fsys := fallback
	if strings.TrimSpace(dir) != "" {
		fsys = os.DirFS(dir)
	}
	if fsys == nil {
		return nil, fmt.Errorf("no migrations source configured")
	}

	sqlDB, err := sql.Open("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("init migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	applied := make([]MigrationResult, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		applied = append(applied, MigrationResult{Version: r.Source.Version, Source: r.Source.Path})
	}
	return applied, nil
}
