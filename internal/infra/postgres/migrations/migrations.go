package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema for the quiz catalog. Each migration registers
// itself from a file named <version>_<name>.go.
var Migrations = migrate.NewMigrations()
