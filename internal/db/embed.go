package db

import "embed"

// EmbedMigrations holds the metastore schema migrations applied by goose.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
