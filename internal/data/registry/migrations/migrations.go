// Package migrations embeds the SQLite registry schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
