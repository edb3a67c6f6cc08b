package ratingdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/uptrace/bun"
)

// Player is the rating profile of a user inside a guild.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	GuildID      sharedtypes.GuildID `bun:"guild_id,pk,type:varchar(32)"`
	UserID       sharedtypes.UserID  `bun:"user_id,pk,type:varchar(32)"`
	DisplayName  string              `bun:"display_name,notnull"`
	Points       int                 `bun:"points,notnull,default:0"`
	Wins         int                 `bun:"wins,notnull,default:0"`
	Losses       int                 `bun:"losses,notnull,default:0"`
	Draws        int                 `bun:"draws,notnull,default:0"`
	GamesPlayed  int                 `bun:"games_played,notnull,default:0"`
	RegisteredAt time.Time           `bun:"registered_at,notnull,default:current_timestamp"`
}

// Rank binds a role to a point threshold.
type Rank struct {
	bun.BaseModel `bun:"table:ranks,alias:rk"`

	GuildID      sharedtypes.GuildID `bun:"guild_id,pk,type:varchar(32)"`
	RoleID       sharedtypes.RoleID  `bun:"role_id,pk,type:varchar(32)"`
	Threshold    int                 `bun:"threshold,notnull"`
	WinModifier  *int                `bun:"win_modifier"`
	LossModifier *int                `bun:"loss_modifier"`
}

// Competition holds a guild's scoring policy.
type Competition struct {
	bun.BaseModel `bun:"table:competitions,alias:c"`

	GuildID             sharedtypes.GuildID `bun:"guild_id,pk,type:varchar(32)"`
	DefaultWinModifier  int                 `bun:"default_win_modifier,notnull"`
	DefaultLossModifier int                 `bun:"default_loss_modifier,notnull"`
	AllowNegative       bool                `bun:"allow_negative,notnull,default:false"`
	AllowMultiQueue     bool                `bun:"allow_multi_queue,notnull,default:false"`
	RequeueDelaySeconds int64               `bun:"requeue_delay_seconds,notnull,default:0"`
	VotingEnabled       bool                `bun:"voting_enabled,notnull,default:false"`
	UpdatedAt           time.Time           `bun:"updated_at,notnull,default:current_timestamp"`
}

// ManualGame is an out-of-band win/lose adjustment.
type ManualGame struct {
	bun.BaseModel `bun:"table:manual_games,alias:mg"`

	GuildID   sharedtypes.GuildID `bun:"guild_id,pk,type:varchar(32)"`
	Number    int64               `bun:"number,pk"`
	CreatedBy sharedtypes.UserID  `bun:"created_by,type:varchar(32)"`
	CreatedAt time.Time           `bun:"created_at,notnull,default:current_timestamp"`
	UndoneAt  *time.Time          `bun:"undone_at"`
}

// ScoreUpdate is one player's recorded delta inside a manual game.
type ScoreUpdate struct {
	bun.BaseModel `bun:"table:score_updates,alias:su"`

	ID               int64               `bun:"id,pk,autoincrement"`
	GuildID          sharedtypes.GuildID `bun:"guild_id,notnull,type:varchar(32)"`
	ManualGameNumber int64               `bun:"manual_game_number,notnull"`
	UserID           sharedtypes.UserID  `bun:"user_id,notnull,type:varchar(32)"`
	Outcome          string              `bun:"outcome,notnull"`
	Delta            int                 `bun:"delta,notnull"`
}

// Ban is a temporary matchmaking suspension.
type Ban struct {
	bun.BaseModel `bun:"table:bans,alias:b"`

	ID            int64               `bun:"id,pk,autoincrement"`
	GuildID       sharedtypes.GuildID `bun:"guild_id,notnull,type:varchar(32)"`
	UserID        sharedtypes.UserID  `bun:"user_id,notnull,type:varchar(32)"`
	StartedAt     time.Time           `bun:"started_at,notnull"`
	LengthSeconds int64               `bun:"length_seconds,notnull"`
	ModeratorID   sharedtypes.UserID  `bun:"moderator_id,type:varchar(32)"`
	Reason        string              `bun:"reason"`
	Overridden    bool                `bun:"overridden,notnull,default:false"`
}
