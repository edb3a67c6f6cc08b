package matchmakingmigrations

import (
	"context"
	"fmt"

	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating matchmaking tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			models := []interface{}{
				(*matchmakingdb.Lobby)(nil),
				(*matchmakingdb.LobbyMap)(nil),
				(*matchmakingdb.QueuedPlayer)(nil),
				(*matchmakingdb.Game)(nil),
				(*matchmakingdb.GameTeam)(nil),
				(*matchmakingdb.GamePlayer)(nil),
				(*matchmakingdb.GameScore)(nil),
				(*matchmakingdb.GameVote)(nil),
				(*matchmakingdb.PartyMember)(nil),
			}
			for _, model := range models {
				if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
					return fmt.Errorf("failed to create table for %T: %w", model, err)
				}
			}

			// The partial unique index enforces at most one open game per lobby.
			if _, err := tx.ExecContext(ctx, `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_games_one_open_per_lobby
					ON games(guild_id, channel_id) WHERE state IN ('picking', 'undecided');
				CREATE INDEX IF NOT EXISTS idx_queued_players_guild_user ON queued_players(guild_id, user_id);
				CREATE INDEX IF NOT EXISTS idx_party_members_host ON party_members(guild_id, host_id);
				CREATE INDEX IF NOT EXISTS idx_lobbies_timeout ON lobbies(queue_timeout_seconds) WHERE queue_timeout_seconds > 0;
			`); err != nil {
				return fmt.Errorf("failed to create matchmaking indexes: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping matchmaking tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			tables := []string{
				"party_members", "game_votes", "game_scores", "game_players",
				"game_teams", "games", "queued_players", "lobby_maps", "lobbies",
			}
			for _, table := range tables {
				if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
					return fmt.Errorf("failed to drop %s: %w", table, err)
				}
			}
			return nil
		})
	})
}
