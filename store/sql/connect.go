package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Open dials the configured driver and wraps the connection in a persistence
// client with the matching bun dialect. Postgres is the production target;
// sqlite backs local development and tests.
func Open(cfg persistence.Config) (*persistence.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqlstore: persistence config is required")
	}
	driver := strings.TrimSpace(strings.ToLower(cfg.GetDriver()))
	switch driver {
	case "postgres", "postgresql", "pg":
		sqlDB, err := sql.Open("postgres", cfg.GetServer())
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
		}
		return persistence.New(cfg, sqlDB, pgdialect.New())
	case "sqlite", "sqlite3":
		sqlDB, err := sql.Open("sqlite3", cfg.GetServer())
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
		}
		// Shared-cache in-memory databases misbehave with a connection pool.
		sqlDB.SetMaxOpenConns(1)
		return persistence.New(cfg, sqlDB, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.GetDriver())
	}
}
