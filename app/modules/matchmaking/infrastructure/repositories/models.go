package matchmakingdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/uptrace/bun"
)

// Lobby is the per-channel matchmaking configuration.
type Lobby struct {
	bun.BaseModel `bun:"table:lobbies,alias:l"`

	GuildID             sharedtypes.GuildID   `bun:"guild_id,pk,type:varchar(32)"`
	ChannelID           sharedtypes.ChannelID `bun:"channel_id,pk,type:varchar(32)"`
	PlayersPerTeam      int                   `bun:"players_per_team,notnull"`
	PickMode            string                `bun:"pick_mode,notnull"`
	PickOrder           string                `bun:"pick_order,notnull"`
	MinPoints           *int                  `bun:"min_points"`
	Multiplier          float64               `bun:"multiplier,notnull,default:1"`
	HighLimit           *int                  `bun:"high_limit"`
	ReductionFactor     float64               `bun:"reduction_factor,notnull,default:1"`
	MultiplyLoss        bool                  `bun:"multiply_loss,notnull,default:false"`
	QueueTimeoutSeconds int64                 `bun:"queue_timeout_seconds,notnull,default:0"`
	HideQueue           bool                  `bun:"hide_queue,notnull,default:false"`
	DMOnReady           bool                  `bun:"dm_on_ready,notnull,default:false"`
	AnnouncementChannel sharedtypes.ChannelID `bun:"announcement_channel,type:varchar(32)"`
	CreatedAt           time.Time             `bun:"created_at,notnull,default:current_timestamp"`
}

// LobbyMap is one entry of a lobby's map pool.
type LobbyMap struct {
	bun.BaseModel `bun:"table:lobby_maps,alias:lm"`

	GuildID   sharedtypes.GuildID   `bun:"guild_id,pk,type:varchar(32)"`
	ChannelID sharedtypes.ChannelID `bun:"channel_id,pk,type:varchar(32)"`
	Name      string                `bun:"name,pk"`
}

// QueuedPlayer is a user waiting in a lobby queue.
type QueuedPlayer struct {
	bun.BaseModel `bun:"table:queued_players,alias:qp"`

	GuildID   sharedtypes.GuildID   `bun:"guild_id,pk,type:varchar(32)"`
	ChannelID sharedtypes.ChannelID `bun:"channel_id,pk,type:varchar(32)"`
	UserID    sharedtypes.UserID    `bun:"user_id,pk,type:varchar(32)"`
	QueuedAt  time.Time             `bun:"queued_at,notnull"`
}

// Game is the lifecycle row of a game. Teams, members, scores and votes are child
// rows keyed by (lobby, number).
type Game struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	GuildID    sharedtypes.GuildID    `bun:"guild_id,pk,type:varchar(32)"`
	ChannelID  sharedtypes.ChannelID  `bun:"channel_id,pk,type:varchar(32)"`
	Number     sharedtypes.GameNumber `bun:"number,pk"`
	State      string                 `bun:"state,notnull"`
	PickMode   string                 `bun:"pick_mode,notnull"`
	PickOrder  string                 `bun:"pick_order,notnull"`
	Picks      int                    `bun:"picks,notnull,default:0"`
	MapName    string                 `bun:"map_name"`
	VoteLocked bool                   `bun:"vote_locked,notnull,default:false"`
	Winner     sharedtypes.Team       `bun:"winner,notnull,default:0"`
	ResolvedBy sharedtypes.UserID     `bun:"resolved_by,type:varchar(32)"`
	Comment    string                 `bun:"comment"`
	ResolvedAt *time.Time             `bun:"resolved_at"`
	Legacy     bool                   `bun:"legacy,notnull,default:false"`
	CreatedAt  time.Time              `bun:"created_at,notnull,default:current_timestamp"`
}

// GameTeam holds the captain of one team.
type GameTeam struct {
	bun.BaseModel `bun:"table:game_teams,alias:gt"`

	GuildID    sharedtypes.GuildID    `bun:"guild_id,pk,type:varchar(32)"`
	ChannelID  sharedtypes.ChannelID  `bun:"channel_id,pk,type:varchar(32)"`
	GameNumber sharedtypes.GameNumber `bun:"game_number,pk"`
	Team       sharedtypes.Team       `bun:"team_number,pk"`
	CaptainID  sharedtypes.UserID     `bun:"captain_id,type:varchar(32)"`
}

// GamePlayer places a user on a team.
type GamePlayer struct {
	bun.BaseModel `bun:"table:game_players,alias:gp"`

	GuildID    sharedtypes.GuildID    `bun:"guild_id,pk,type:varchar(32)"`
	ChannelID  sharedtypes.ChannelID  `bun:"channel_id,pk,type:varchar(32)"`
	GameNumber sharedtypes.GameNumber `bun:"game_number,pk"`
	UserID     sharedtypes.UserID     `bun:"user_id,pk,type:varchar(32)"`
	Team       sharedtypes.Team       `bun:"team_number,notnull"`
	Position   int                    `bun:"position,notnull"`
}

// GameScore is the applied delta of one player of a decided game.
type GameScore struct {
	bun.BaseModel `bun:"table:game_scores,alias:gs"`

	GuildID    sharedtypes.GuildID    `bun:"guild_id,pk,type:varchar(32)"`
	ChannelID  sharedtypes.ChannelID  `bun:"channel_id,pk,type:varchar(32)"`
	GameNumber sharedtypes.GameNumber `bun:"game_number,pk"`
	UserID     sharedtypes.UserID     `bun:"user_id,pk,type:varchar(32)"`
	Outcome    string                 `bun:"outcome,notnull"`
	Delta      int                    `bun:"delta,notnull"`
}

// GameVote is one player's result vote.
type GameVote struct {
	bun.BaseModel `bun:"table:game_votes,alias:gv"`

	GuildID    sharedtypes.GuildID    `bun:"guild_id,pk,type:varchar(32)"`
	ChannelID  sharedtypes.ChannelID  `bun:"channel_id,pk,type:varchar(32)"`
	GameNumber sharedtypes.GameNumber `bun:"game_number,pk"`
	UserID     sharedtypes.UserID     `bun:"user_id,pk,type:varchar(32)"`
	Vote       string                 `bun:"vote,notnull"`
}

// PartyMember links a member to a party host. A user belongs to at most one party.
type PartyMember struct {
	bun.BaseModel `bun:"table:party_members,alias:pm"`

	GuildID  sharedtypes.GuildID `bun:"guild_id,pk,type:varchar(32)"`
	MemberID sharedtypes.UserID  `bun:"member_id,pk,type:varchar(32)"`
	HostID   sharedtypes.UserID  `bun:"host_id,notnull,type:varchar(32)"`
}

// GameRecord is a game row with its child rows.
type GameRecord struct {
	Game    Game
	Teams   []GameTeam
	Players []GamePlayer
	Scores  []GameScore
	Votes   []GameVote
}
