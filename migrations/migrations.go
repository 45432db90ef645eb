// Package migrations embeds the PostgreSQL schema applied at startup by
// database/migration. SQLite deployments use gorm auto-migration instead.
package migrations

import "embed"

// FS holds the versioned migration files at its root.
//
//go:embed *.sql
var FS embed.FS

// Path is the directory inside FS that holds the migrations.
const Path = "."
