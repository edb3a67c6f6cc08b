// Package ratingevents defines the rating module's topics and payloads.
package ratingevents

import (
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/shared"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// Inbound commands.
const (
	PlayerRegisterRequestedV1    = "rating.player.register.requested.v1"
	ManualGameRequestedV1        = "rating.manual_game.requested.v1"
	ManualGameUndoRequestedV1    = "rating.manual_game.undo.requested.v1"
	BanRequestedV1               = "rating.ban.requested.v1"
	UnbanRequestedV1             = "rating.unban.requested.v1"
	RankSetRequestedV1           = "rating.rank.set.requested.v1"
	RankRemoveRequestedV1        = "rating.rank.remove.requested.v1"
	CompetitionUpdateRequestedV1 = "rating.competition.update.requested.v1"
	LeaderboardRequestedV1       = "rating.leaderboard.requested.v1"
)

// Outbound events.
const (
	PlayerRegisteredV1   = "rating.player.registered.v1"
	ManualGameRecordedV1 = "rating.manual_game.recorded.v1"
	ManualGameUndoneV1   = "rating.manual_game.undone.v1"
	BanAppliedV1         = "rating.ban.applied.v1"
	BanLiftedV1          = "rating.ban.lifted.v1"
	ConfigUpdatedV1      = "rating.config.updated.v1"
	LeaderboardV1        = "rating.leaderboard.v1"
)

type PlayerRegisterRequestedPayloadV1 struct {
	GuildID     sharedtypes.GuildID `json:"guild_id"`
	UserID      sharedtypes.UserID  `json:"user_id"`
	DisplayName string              `json:"display_name"`
}

type PlayerRegisteredPayloadV1 struct {
	GuildID     sharedtypes.GuildID `json:"guild_id"`
	UserID      sharedtypes.UserID  `json:"user_id"`
	DisplayName string              `json:"display_name"`
	Points      int                 `json:"points"`
}

type ManualGameRequestedPayloadV1 struct {
	GuildID     sharedtypes.GuildID  `json:"guild_id"`
	ModeratorID sharedtypes.UserID   `json:"moderator_id"`
	Winners     []sharedtypes.UserID `json:"winners"`
	Losers      []sharedtypes.UserID `json:"losers"`
}

type ManualGameUndoRequestedPayloadV1 struct {
	GuildID     sharedtypes.GuildID `json:"guild_id"`
	ModeratorID sharedtypes.UserID  `json:"moderator_id"`
	Number      int64               `json:"number"`
}

// ManualGameResultPayloadV1 is published for both recorded and undone manual games.
type ManualGameResultPayloadV1 struct {
	GuildID  sharedtypes.GuildID          `json:"guild_id"`
	Number   int64                        `json:"number"`
	Changes  []sharedevents.ScoreChangeV1 `json:"changes"`
	Warnings []string                     `json:"warnings,omitempty"`
}

type BanRequestedPayloadV1 struct {
	GuildID     sharedtypes.GuildID `json:"guild_id"`
	UserID      sharedtypes.UserID  `json:"user_id"`
	ModeratorID sharedtypes.UserID  `json:"moderator_id"`
	Length      string              `json:"length"`
	Reason      string              `json:"reason"`
}

type BanAppliedPayloadV1 struct {
	GuildID   sharedtypes.GuildID `json:"guild_id"`
	UserID    sharedtypes.UserID  `json:"user_id"`
	ExpiresAt string              `json:"expires_at"`
	Reason    string              `json:"reason"`
}

type UnbanRequestedPayloadV1 struct {
	GuildID     sharedtypes.GuildID `json:"guild_id"`
	UserID      sharedtypes.UserID  `json:"user_id"`
	ModeratorID sharedtypes.UserID  `json:"moderator_id"`
}

type BanLiftedPayloadV1 struct {
	GuildID sharedtypes.GuildID `json:"guild_id"`
	UserID  sharedtypes.UserID  `json:"user_id"`
}

type RankSetRequestedPayloadV1 struct {
	GuildID      sharedtypes.GuildID `json:"guild_id"`
	RoleID       sharedtypes.RoleID  `json:"role_id"`
	Threshold    int                 `json:"threshold"`
	WinModifier  *int                `json:"win_modifier,omitempty"`
	LossModifier *int                `json:"loss_modifier,omitempty"`
}

type RankRemoveRequestedPayloadV1 struct {
	GuildID sharedtypes.GuildID `json:"guild_id"`
	RoleID  sharedtypes.RoleID  `json:"role_id"`
}

type CompetitionUpdateRequestedPayloadV1 struct {
	GuildID             sharedtypes.GuildID `json:"guild_id"`
	DefaultWinModifier  int                 `json:"default_win_modifier"`
	DefaultLossModifier int                 `json:"default_loss_modifier"`
	AllowNegative       bool                `json:"allow_negative"`
	AllowMultiQueue     bool                `json:"allow_multi_queue"`
	RequeueDelaySeconds int64               `json:"requeue_delay_seconds"`
	VotingEnabled       bool                `json:"voting_enabled"`
}

type ConfigUpdatedPayloadV1 struct {
	GuildID sharedtypes.GuildID `json:"guild_id"`
	What    string              `json:"what"`
}

type LeaderboardRequestedPayloadV1 struct {
	GuildID sharedtypes.GuildID  `json:"guild_id"`
	Limit   int                  `json:"limit"`
	Only    []sharedtypes.UserID `json:"only,omitempty"`
}

type LeaderboardEntryV1 struct {
	Position    int                `json:"position"`
	UserID      sharedtypes.UserID `json:"user_id"`
	DisplayName string             `json:"display_name"`
	Points      int                `json:"points"`
	Wins        int                `json:"wins"`
	Losses      int                `json:"losses"`
	Draws       int                `json:"draws"`
	RoleID      sharedtypes.RoleID `json:"role_id,omitempty"`
}

type LeaderboardPayloadV1 struct {
	GuildID sharedtypes.GuildID  `json:"guild_id"`
	Entries []LeaderboardEntryV1 `json:"entries"`
}

// ScoreChangesV1 converts applied score changes to their wire form.
func ScoreChangesV1(changes []ratingdomain.ScoreChange) []sharedevents.ScoreChangeV1 {
	out := make([]sharedevents.ScoreChangeV1, 0, len(changes))
	for _, c := range changes {
		v := sharedevents.ScoreChangeV1{
			UserID:    c.UserID,
			Outcome:   string(c.Outcome),
			Delta:     c.Result.Delta,
			OldPoints: c.Result.OldPoints,
			NewPoints: c.Result.NewPoints,
			Change:    string(c.Result.Change),
		}
		if c.Result.OldRank != nil {
			v.OldRole = c.Result.OldRank.RoleID
		}
		if c.Result.NewRank != nil {
			v.NewRole = c.Result.NewRank.RoleID
		}
		out = append(out, v)
	}
	return out
}
