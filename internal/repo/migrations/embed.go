// Package migrations содержит схему каталога для Postgres.
package migrations

import "embed"

// FS — встроенные SQL миграции.
//
//go:embed *.sql
var FS embed.FS
