// Package migrations embeds the SQL schema for the channel directory and
// operator sessions.
package migrations

import "embed"

// FS holds the embedded migration files, applied in version order at startup.
//
//go:embed *.sql
var FS embed.FS
