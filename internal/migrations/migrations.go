// Package migrations embeds the goose SQL migrations for both supported
// database dialects. Directory names match the dialect passed to dbx.Migrate.
package migrations

import "embed"

//go:embed sqlite/*.sql
var SQLite embed.FS

//go:embed postgres/*.sql
var Postgres embed.FS
