package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"journal-identity/internal/config"
	"journal-identity/internal/db"
	"journal-identity/internal/db/migrate"
	sessionrepo "journal-identity/internal/session/repository"
	userrepo "journal-identity/internal/user/repository"
)

// StoreKind names the backing store selected from config.
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreSQLite   StoreKind = "sqlite"
	StoreMemory   StoreKind = "memory"
)

type stores struct {
	kind     StoreKind
	db       *sql.DB
	sessions sessionrepo.Repository
	users    userrepo.Repository
}

// openStores picks Postgres when DATABASE_URL is set, SQLite when SQLITE_PATH
// is set, and in-memory otherwise.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		if cfg.DatabaseAutoMigrate {
			if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &stores{
			kind:     StorePostgres,
			db:       conn,
			sessions: sessionrepo.NewPostgresRepository(conn),
			users:    userrepo.NewPostgresRepository(conn),
		}, nil
	case strings.TrimSpace(cfg.SQLitePath) != "":
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{
			kind:     StoreSQLite,
			db:       conn,
			sessions: sessionrepo.NewSQLiteRepository(conn),
			users:    userrepo.NewSQLiteRepository(conn),
		}, nil
	default:
		return &stores{
			kind:     StoreMemory,
			sessions: sessionrepo.NewMemoryRepository(),
			users:    userrepo.NewMemoryRepository(),
		}, nil
	}
}
