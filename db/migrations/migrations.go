// Package migrations embeds the goose SQL migrations. The SQL sticks to types
// both Postgres and SQLite accept.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
