// Package migrations holds the accountgate schema for golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
