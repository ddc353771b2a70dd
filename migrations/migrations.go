// Package migrations embeds the Postgres schema for the lead log.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
