package matchmakingmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the matchmaking module migrations.
var Migrations = migrate.NewMigrations()
