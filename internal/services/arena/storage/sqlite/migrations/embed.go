// Package migrations embeds the arena schema migrations.
package migrations

import "embed"

// FS holds the SQL migration files applied at store open.
//
//go:embed arena/*.sql
var FS embed.FS
