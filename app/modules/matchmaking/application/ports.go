package matchmakingservice

import (
	"context"
	"time"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/uptrace/bun"
)

// Ratings is the part of the rating ledger matchmaking scores games through. Every
// call runs on the caller's transaction.
type Ratings interface {
	GetPlayer(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdomain.Player, error)
	GetPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]ratingdomain.Player, error)
	GetCompetition(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (ratingdomain.Competition, error)
	ActiveBan(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, now time.Time) (*ratingdomain.Ban, error)
	ApplyOutcomes(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, settings ratingdomain.ScoreSettings, outcomes []ratingdomain.PlayerOutcome) ([]ratingdomain.ScoreChange, error)
	RevertOutcomes(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, reversals []ratingdomain.Reversal) ([]ratingdomain.ScoreChange, error)
	RecordDraws(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) error
}

// Announcer delivers lobby announcements. Announce must not block.
type Announcer interface {
	Announce(ctx context.Context, a Announcement)
}
