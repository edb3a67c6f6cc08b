package ratingmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the rating module migrations.
var Migrations = migrate.NewMigrations()
