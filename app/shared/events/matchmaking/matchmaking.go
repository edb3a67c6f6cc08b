// Package matchmakingevents defines the matchmaking module's topics and payloads.
package matchmakingevents

import (
	"math"
	"time"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	sharedevents "github.com/Black-And-White-Club/lobby-bot/app/shared/events/shared"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// Inbound commands.
const (
	LobbyCreateRequestedV1 = "matchmaking.lobby.create.requested.v1"
	LobbyUpdateRequestedV1 = "matchmaking.lobby.update.requested.v1"
	LobbyDeleteRequestedV1 = "matchmaking.lobby.delete.requested.v1"
	MapAddRequestedV1      = "matchmaking.lobby.map.add.requested.v1"
	MapRemoveRequestedV1   = "matchmaking.lobby.map.remove.requested.v1"

	QueueJoinRequestedV1  = "matchmaking.queue.join.requested.v1"
	QueueLeaveRequestedV1 = "matchmaking.queue.leave.requested.v1"
	QueueViewRequestedV1  = "matchmaking.queue.view.requested.v1"

	PickRequestedV1         = "matchmaking.game.pick.requested.v1"
	VoteRequestedV1         = "matchmaking.game.vote.requested.v1"
	ResultSubmittedV1       = "matchmaking.game.result.submitted.v1"
	DrawRequestedV1         = "matchmaking.game.draw.requested.v1"
	CancelRequestedV1       = "matchmaking.game.cancel.requested.v1"
	UndoRequestedV1         = "matchmaking.game.undo.requested.v1"
	GameLookupRequestedV1   = "matchmaking.game.lookup.requested.v1"
	PartyAddRequestedV1     = "matchmaking.party.add.requested.v1"
	PartyLeaveRequestedV1   = "matchmaking.party.leave.requested.v1"
	PartyDisbandRequestedV1 = "matchmaking.party.disband.requested.v1"
)

// Command replies.
const (
	LobbyCreatedV1 = "matchmaking.lobby.created.v1"
	LobbyUpdatedV1 = "matchmaking.lobby.updated.v1"
	LobbyDeletedV1 = "matchmaking.lobby.deleted.v1"
	QueueUpdatedV1 = "matchmaking.queue.updated.v1"
	QueueViewV1    = "matchmaking.queue.view.v1"
	VoteRecordedV1 = "matchmaking.game.vote.recorded.v1"
	GameInfoV1     = "matchmaking.game.info.v1"
	PartyUpdatedV1 = "matchmaking.party.updated.v1"
)

// Lobby announcements, published through the outbox after commit.
const (
	GameFormedV1   = "matchmaking.game.formed.v1"
	PickMadeV1     = "matchmaking.game.pick.made.v1"
	GameReadyV1    = "matchmaking.game.ready.v1"
	VoteLockedV1   = "matchmaking.game.vote.locked.v1"
	GameDecidedV1  = "matchmaking.game.decided.v1"
	GameDrawnV1    = "matchmaking.game.drawn.v1"
	GameCanceledV1 = "matchmaking.game.canceled.v1"
	GameUndoneV1   = "matchmaking.game.undone.v1"
	QueueEvictedV1 = "matchmaking.queue.evicted.v1"
)

// LobbyRefV1 addresses a lobby and the user acting on it.
type LobbyRefV1 struct {
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	UserID    sharedtypes.UserID    `json:"user_id"`
}

// Key returns the lobby key.
func (r LobbyRefV1) Key() sharedtypes.LobbyKey {
	return sharedtypes.LobbyKey{GuildID: r.GuildID, ChannelID: r.ChannelID}
}

type LobbyCreateRequestedPayloadV1 struct {
	LobbyRefV1
	PlayersPerTeam int `json:"players_per_team"`
}

// LobbyUpdateRequestedPayloadV1 patches lobby settings; absent fields are unchanged.
type LobbyUpdateRequestedPayloadV1 struct {
	LobbyRefV1
	PlayersPerTeam      *int                   `json:"players_per_team,omitempty"`
	PickMode            *string                `json:"pick_mode,omitempty"`
	PickOrder           *string                `json:"pick_order,omitempty"`
	MinPoints           *int                   `json:"min_points,omitempty"`
	ClearMinPoints      bool                   `json:"clear_min_points,omitempty"`
	Multiplier          *float64               `json:"multiplier,omitempty"`
	HighLimit           *int                   `json:"high_limit,omitempty"`
	ClearHighLimit      bool                   `json:"clear_high_limit,omitempty"`
	ReductionPercent    *int                   `json:"reduction_percent,omitempty"`
	MultiplyLoss        *bool                  `json:"multiply_loss,omitempty"`
	QueueTimeoutSeconds *int64                 `json:"queue_timeout_seconds,omitempty"`
	HideQueue           *bool                  `json:"hide_queue,omitempty"`
	DMOnReady           *bool                  `json:"dm_on_ready,omitempty"`
	AnnouncementChannel *sharedtypes.ChannelID `json:"announcement_channel,omitempty"`
}

type LobbyMapRequestedPayloadV1 struct {
	LobbyRefV1
	Name string `json:"name"`
}

// LobbyPayloadV1 is the wire form of a lobby's settings.
type LobbyPayloadV1 struct {
	GuildID             sharedtypes.GuildID   `json:"guild_id"`
	ChannelID           sharedtypes.ChannelID `json:"channel_id"`
	PlayersPerTeam      int                   `json:"players_per_team"`
	PickMode            string                `json:"pick_mode"`
	PickOrder           string                `json:"pick_order"`
	MinPoints           *int                  `json:"min_points,omitempty"`
	Multiplier          float64               `json:"multiplier"`
	HighLimit           *int                  `json:"high_limit,omitempty"`
	ReductionPercent    int                   `json:"reduction_percent"`
	MultiplyLoss        bool                  `json:"multiply_loss"`
	QueueTimeoutSeconds int64                 `json:"queue_timeout_seconds"`
	HideQueue           bool                  `json:"hide_queue"`
	DMOnReady           bool                  `json:"dm_on_ready"`
	AnnouncementChannel sharedtypes.ChannelID `json:"announcement_channel,omitempty"`
	Maps                []string              `json:"maps,omitempty"`
}

type LobbyDeletedPayloadV1 struct {
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
}

type QueueViewRequestedPayloadV1 struct {
	LobbyRefV1
	// Reveal is set by moderators to see hidden queues.
	Reveal bool `json:"reveal,omitempty"`
}

// QueuePayloadV1 is a queue snapshot. Players is omitted for hidden queues.
type QueuePayloadV1 struct {
	GuildID   sharedtypes.GuildID   `json:"guild_id"`
	ChannelID sharedtypes.ChannelID `json:"channel_id"`
	UserID    sharedtypes.UserID    `json:"user_id,omitempty"`
	Action    string                `json:"action,omitempty"`
	Size      int                   `json:"size"`
	Capacity  int                   `json:"capacity"`
	Hidden    bool                  `json:"hidden,omitempty"`
	Players   []sharedtypes.UserID  `json:"players,omitempty"`
	Warnings  []string              `json:"warnings,omitempty"`
}

type PickRequestedPayloadV1 struct {
	LobbyRefV1
	Players []sharedtypes.UserID `json:"players"`
}

// VoteRequestedPayloadV1 is a player's result vote. Number 0 targets the latest game.
type VoteRequestedPayloadV1 struct {
	LobbyRefV1
	Number sharedtypes.GameNumber `json:"number,omitempty"`
	Vote   string                 `json:"vote"`
}

type VoteRecordedPayloadV1 struct {
	GuildID   sharedtypes.GuildID    `json:"guild_id"`
	ChannelID sharedtypes.ChannelID  `json:"channel_id"`
	UserID    sharedtypes.UserID     `json:"user_id"`
	Number    sharedtypes.GameNumber `json:"number"`
	Vote      string                 `json:"vote"`
	Consensus string                 `json:"consensus"`
}

// ResultSubmittedPayloadV1 is a moderator result. Number 0 targets the latest game.
type ResultSubmittedPayloadV1 struct {
	LobbyRefV1
	Number  sharedtypes.GameNumber `json:"number,omitempty"`
	Winner  sharedtypes.Team       `json:"winner"`
	Comment string                 `json:"comment,omitempty"`
}

// GameCommandPayloadV1 targets a game for draw, cancel, undo or lookup.
type GameCommandPayloadV1 struct {
	LobbyRefV1
	Number  sharedtypes.GameNumber `json:"number,omitempty"`
	Comment string                 `json:"comment,omitempty"`
}

// GamePayloadV1 is the wire form of a game and, for announcements, what just happened to it.
type GamePayloadV1 struct {
	GuildID         sharedtypes.GuildID          `json:"guild_id"`
	ChannelID       sharedtypes.ChannelID        `json:"channel_id"`
	AnnounceChannel sharedtypes.ChannelID        `json:"announce_channel,omitempty"`
	Number          sharedtypes.GameNumber       `json:"number"`
	State           string                       `json:"state"`
	PickMode        string                       `json:"pick_mode"`
	Map             string                       `json:"map,omitempty"`
	CaptainOne      sharedtypes.UserID           `json:"captain_one,omitempty"`
	CaptainTwo      sharedtypes.UserID           `json:"captain_two,omitempty"`
	TeamOne         []sharedtypes.UserID         `json:"team_one"`
	TeamTwo         []sharedtypes.UserID         `json:"team_two"`
	NextPicker      sharedtypes.UserID           `json:"next_picker,omitempty"`
	VoteLocked      bool                         `json:"vote_locked,omitempty"`
	Winner          sharedtypes.Team             `json:"winner,omitempty"`
	ResolvedBy      sharedtypes.UserID           `json:"resolved_by,omitempty"`
	Comment         string                       `json:"comment,omitempty"`
	Changes         []sharedevents.ScoreChangeV1 `json:"changes,omitempty"`
	Warnings        []string                     `json:"warnings,omitempty"`
}

// QueueEvictedPayloadV1 lists players removed from a queue by timeout or by joining a game elsewhere.
type QueueEvictedPayloadV1 struct {
	GuildID         sharedtypes.GuildID   `json:"guild_id"`
	ChannelID       sharedtypes.ChannelID `json:"channel_id"`
	AnnounceChannel sharedtypes.ChannelID `json:"announce_channel,omitempty"`
	Users           []sharedtypes.UserID  `json:"users"`
}

type PartyRequestedPayloadV1 struct {
	GuildID  sharedtypes.GuildID `json:"guild_id"`
	HostID   sharedtypes.UserID  `json:"host_id"`
	MemberID sharedtypes.UserID  `json:"member_id,omitempty"`
}

type PartyUpdatedPayloadV1 struct {
	GuildID sharedtypes.GuildID    `json:"guild_id"`
	Action  string                 `json:"action"`
	Parties [][]sharedtypes.UserID `json:"parties"`
}

// GameV1 converts a game to its wire form. announceTo is the lobby's announcement channel.
func GameV1(game *matchmakingdomain.Game, announceTo sharedtypes.ChannelID) GamePayloadV1 {
	p := GamePayloadV1{
		GuildID:         game.Lobby.GuildID,
		ChannelID:       game.Lobby.ChannelID,
		AnnounceChannel: announceTo,
		Number:          game.Number,
		State:           string(game.Phase.State()),
		PickMode:        string(game.PickMode),
		Map:             game.Map,
		CaptainOne:      game.Roster.Captain(sharedtypes.TeamOne),
		CaptainTwo:      game.Roster.Captain(sharedtypes.TeamTwo),
		TeamOne:         game.Roster.Team(sharedtypes.TeamOne),
		TeamTwo:         game.Roster.Team(sharedtypes.TeamTwo),
	}
	switch phase := game.Phase.(type) {
	case matchmakingdomain.Picking:
		team, _ := matchmakingdomain.PickTurn(game.PickOrder, game.Picks)
		p.NextPicker = game.Roster.Captain(team)
	case matchmakingdomain.Undecided:
		p.VoteLocked = phase.VoteLocked
	case matchmakingdomain.Decided:
		p.Winner = phase.Winner
		p.ResolvedBy = phase.By
		p.Comment = phase.Comment
	case matchmakingdomain.Drawn:
		p.ResolvedBy = phase.By
		p.Comment = phase.Comment
	case matchmakingdomain.Canceled:
		p.ResolvedBy = phase.By
		p.Comment = phase.Comment
	}
	return p
}

// LobbyV1 converts lobby settings to their wire form.
func LobbyV1(lobby *matchmakingdomain.Lobby) LobbyPayloadV1 {
	return LobbyPayloadV1{
		GuildID:             lobby.Key.GuildID,
		ChannelID:           lobby.Key.ChannelID,
		PlayersPerTeam:      lobby.PlayersPerTeam,
		PickMode:            string(lobby.PickMode),
		PickOrder:           string(lobby.PickOrder),
		MinPoints:           lobby.MinPoints,
		Multiplier:          lobby.Score.Multiplier,
		HighLimit:           lobby.Score.HighLimit,
		ReductionPercent:    int(math.Round(lobby.Score.ReductionFactor * 100)),
		MultiplyLoss:        lobby.Score.MultiplyLoss,
		QueueTimeoutSeconds: int64(lobby.QueueTimeout / time.Second),
		HideQueue:           lobby.HideQueue,
		DMOnReady:           lobby.DMOnReady,
		AnnouncementChannel: lobby.AnnouncementChannel,
		Maps:                lobby.Maps,
	}
}
