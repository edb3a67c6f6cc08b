package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	matchmakingmigrations "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories/migrations"
	ratingmigrations "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories/migrations"
)

// appTables are truncated between tests. Migration and River tables are kept.
var appTables = []string{
	"players", "ranks", "competitions", "manual_games", "score_updates", "bans",
	"lobbies", "lobby_maps", "queued_players", "games", "game_teams", "game_players",
	"game_scores", "game_votes", "party_members",
}

// RunMigrations applies River's schema and then every module migration in order.
func RunMigrations(ctx context.Context, db *bun.DB, dsn string) error {
	if err := migrate.NewMigrator(db, ratingmigrations.Migrations).Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration tables: %w", err)
	}

	if err := runRiverMigrations(ctx, dsn); err != nil {
		return err
	}

	ordered := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"rating", ratingmigrations.Migrations},
		{"matchmaking", matchmakingmigrations.Migrations},
	}
	for _, mod := range ordered {
		group, err := migrate.NewMigrator(db, mod.migrations).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", mod.name, err)
		}
		if !group.IsZero() {
			log.Printf("Ran %s migrations group #%d", mod.name, group.ID)
		}
	}
	return nil
}

func runRiverMigrations(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

// CleanupDatabase truncates every application table and clears River jobs.
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(appTables, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM river_job"); err != nil {
		return fmt.Errorf("failed to cleanup river jobs: %w", err)
	}
	return nil
}
