// Package migrations embeds the SQL schema migrations for the sqlite
// message store.
package migrations

import "embed"

// FS holds the ordered migration files.
//
//go:embed *.sql
var FS embed.FS
