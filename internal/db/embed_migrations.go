package db

import "embed"

// MigrationFS embeds the Postgres SQL migrations from internal/db/migrations.
// Applied by cmd/migrate and, when AUTO_MIGRATE is set, at server startup.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
