// Package sql holds the profile store migrations.
package sql

import "embed"

//go:embed *.sql
var FS embed.FS
