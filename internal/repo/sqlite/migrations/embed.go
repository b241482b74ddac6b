package migrations

import "embed"

// FS содержит встроенные SQLite миграции каталога.
//
//go:embed *.sql
var FS embed.FS
