// Package migrations holds the schema migrations, registered in file
// order by their init functions.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
