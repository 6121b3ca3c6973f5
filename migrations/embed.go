// Package migrations ships the goose SQL migrations inside the binaries.
package migrations

import "embed"

// Dir is the directory inside FS that goose should read.
const Dir = "goose_sql"

//go:embed goose_sql/*.sql
var FS embed.FS
