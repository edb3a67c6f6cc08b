package ratingservice

import (
	"context"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// Service is the rating application API. Business failures are returned as the
// ratingdomain sentinel errors.
type Service interface {
	Register(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, displayName string) (*ratingdomain.Player, error)
	GetPlayer(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdomain.Player, error)
	Rename(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, displayName string) ([]string, error)

	SetRank(ctx context.Context, rank ratingdomain.Rank) error
	RemoveRank(ctx context.Context, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) error
	ListRanks(ctx context.Context, guildID sharedtypes.GuildID) ([]ratingdomain.Rank, error)

	GetCompetition(ctx context.Context, guildID sharedtypes.GuildID) (ratingdomain.Competition, error)
	UpdateCompetition(ctx context.Context, competition ratingdomain.Competition) error

	RecordManualGame(ctx context.Context, req ManualGameRequest) (*ManualGameResult, error)
	UndoManualGame(ctx context.Context, guildID sharedtypes.GuildID, number int64) (*ManualGameResult, error)

	BanPlayer(ctx context.Context, req BanRequest) (*ratingdomain.Ban, error)
	UnbanPlayer(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) error
	ActiveBan(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdomain.Ban, error)

	Leaderboard(ctx context.Context, query LeaderboardQuery) ([]LeaderboardEntry, error)
	ExportLeaderboard(ctx context.Context, query LeaderboardQuery) ([]byte, error)
}

var _ Service = (*RatingService)(nil)
