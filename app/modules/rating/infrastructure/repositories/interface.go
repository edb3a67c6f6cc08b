package ratingdb

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for rating persistence. Every method accepts a
// bun.IDB so callers can run it inside a transaction; nil uses the default connection.
type Repository interface {
	// --- Players ---
	GetPlayer(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*Player, error)
	GetPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) ([]Player, error)
	CreatePlayer(ctx context.Context, db bun.IDB, player *Player) error
	UpdateDisplayName(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, name string) error
	// SaveScore persists points and all result counters of player.
	SaveScore(ctx context.Context, db bun.IDB, player *Player) error
	CountPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (int, error)
	// ListTopPlayers orders by points desc. A non-empty only restricts the result to those users.
	ListTopPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, limit int, only []sharedtypes.UserID) ([]Player, error)

	// --- Ranks ---
	ListRanks(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]Rank, error)
	UpsertRank(ctx context.Context, db bun.IDB, rank *Rank) error
	DeleteRank(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) error

	// --- Competition ---
	GetCompetition(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (*Competition, error)
	UpsertCompetition(ctx context.Context, db bun.IDB, competition *Competition) error

	// --- Manual games ---
	NextManualGameNumber(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (int64, error)
	CreateManualGame(ctx context.Context, db bun.IDB, game *ManualGame, updates []ScoreUpdate) error
	GetManualGame(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, number int64) (*ManualGame, []ScoreUpdate, error)
	MarkManualGameUndone(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, number int64, at time.Time) error

	// --- Bans ---
	CreateBan(ctx context.Context, db bun.IDB, ban *Ban) error
	// ListBans returns the bans of a user, newest first.
	ListBans(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) ([]Ban, error)
	OverrideBans(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (int, error)
}
