// Package migrations embeds the SQL migration files into the binary.
//
// Importing this package for side effects registers the files with the
// database package, so the binary can migrate without the SQL on disk.
package migrations

import (
	"embed"

	"github.com/mostwo/mostwo-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
