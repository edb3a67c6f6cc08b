package ratingmigrations

import (
	"context"
	"fmt"

	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating rating tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			models := []interface{}{
				(*ratingdb.Player)(nil),
				(*ratingdb.Rank)(nil),
				(*ratingdb.Competition)(nil),
				(*ratingdb.ManualGame)(nil),
				(*ratingdb.ScoreUpdate)(nil),
				(*ratingdb.Ban)(nil),
			}
			for _, model := range models {
				if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
					return fmt.Errorf("failed to create table for %T: %w", model, err)
				}
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE INDEX IF NOT EXISTS idx_players_guild_points ON players(guild_id, points DESC);
				CREATE INDEX IF NOT EXISTS idx_score_updates_game ON score_updates(guild_id, manual_game_number);
				CREATE INDEX IF NOT EXISTS idx_bans_guild_user ON bans(guild_id, user_id);
			`); err != nil {
				return fmt.Errorf("failed to create rating indexes: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping rating tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, table := range []string{"bans", "score_updates", "manual_games", "competitions", "ranks", "players"} {
				if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
					return fmt.Errorf("failed to drop %s: %w", table, err)
				}
			}
			return nil
		})
	})
}
