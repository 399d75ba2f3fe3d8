// AngelaMos | 2026
// migrations.go

// Package migrations embeds the versioned SQL schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
