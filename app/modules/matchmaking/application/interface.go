package matchmakingservice

import (
	"context"
	"time"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// Service is the matchmaking application API. Business failures are returned as the
// matchmakingdomain and ratingdomain sentinel errors, or ErrLobbyBusy.
type Service interface {
	CreateLobby(ctx context.Context, key sharedtypes.LobbyKey, playersPerTeam int) (*matchmakingdomain.Lobby, error)
	UpdateLobby(ctx context.Context, key sharedtypes.LobbyKey, update LobbyUpdate) (*LobbyUpdateResult, error)
	DeleteLobby(ctx context.Context, key sharedtypes.LobbyKey) error
	GetLobby(ctx context.Context, key sharedtypes.LobbyKey) (*matchmakingdomain.Lobby, error)
	AddMap(ctx context.Context, key sharedtypes.LobbyKey, name string) error
	RemoveMap(ctx context.Context, key sharedtypes.LobbyKey, name string) error

	Join(ctx context.Context, key sharedtypes.LobbyKey, userID sharedtypes.UserID) (*JoinResult, error)
	Leave(ctx context.Context, key sharedtypes.LobbyKey, userID sharedtypes.UserID) error
	GetQueue(ctx context.Context, key sharedtypes.LobbyKey, reveal bool) (*QueueView, error)
	SweepExpired(ctx context.Context) (int, error)

	Pick(ctx context.Context, key sharedtypes.LobbyKey, captain sharedtypes.UserID, players []sharedtypes.UserID) (*PickOutcome, error)

	Vote(ctx context.Context, req VoteRequest) (*VoteResult, error)
	SubmitResult(ctx context.Context, req ResultRequest) (*GameResult, error)
	Draw(ctx context.Context, req ResolveRequest) (*GameResult, error)
	Cancel(ctx context.Context, req ResolveRequest) (*GameResult, error)
	UndoGame(ctx context.Context, req ResolveRequest) (*GameResult, error)
	GetGame(ctx context.Context, key sharedtypes.LobbyKey, number sharedtypes.GameNumber) (*matchmakingdomain.Game, error)
	ListGames(ctx context.Context, key sharedtypes.LobbyKey, limit int) ([]*matchmakingdomain.Game, error)

	AddPartyMember(ctx context.Context, guildID sharedtypes.GuildID, hostID, memberID sharedtypes.UserID) error
	LeaveParty(ctx context.Context, guildID sharedtypes.GuildID, memberID sharedtypes.UserID) error
	DisbandParty(ctx context.Context, guildID sharedtypes.GuildID, hostID sharedtypes.UserID) (int, error)
	ListParties(ctx context.Context, guildID sharedtypes.GuildID) ([][]sharedtypes.UserID, error)
}

var _ Service = (*MatchmakingService)(nil)

// LobbyUpdate patches lobby settings. Nil fields keep their value; the Clear flags
// unset the optional limits.
type LobbyUpdate struct {
	PlayersPerTeam      *int
	PickMode            *matchmakingdomain.PickMode
	PickOrder           *matchmakingdomain.PickOrder
	MinPoints           *int
	ClearMinPoints      bool
	Multiplier          *float64
	HighLimit           *int
	ClearHighLimit      bool
	ReductionFactor     *float64
	MultiplyLoss        *bool
	QueueTimeout        *time.Duration
	HideQueue           *bool
	DMOnReady           *bool
	AnnouncementChannel *sharedtypes.ChannelID
}

// LobbyUpdateResult carries the updated lobby and the game its new size formed, if any.
type LobbyUpdateResult struct {
	Lobby *matchmakingdomain.Lobby
	Game  *matchmakingdomain.Game
}

// JoinResult is the queue after a join. Game is set when the join filled the queue.
type JoinResult struct {
	Queue    []matchmakingdomain.QueuedPlayer
	Capacity int
	Game     *matchmakingdomain.Game
	Warnings []string
}

// QueueView is a read-only queue snapshot. Players is nil when the queue is hidden.
type QueueView struct {
	Lobby    sharedtypes.LobbyKey
	Size     int
	Capacity int
	Hidden   bool
	Players  []matchmakingdomain.QueuedPlayer
}

// PickOutcome is the game after a captain pick.
type PickOutcome struct {
	Game   *matchmakingdomain.Game
	Result matchmakingdomain.PickResult
}

// VoteRequest is a player's result vote. Number 0 targets the latest game.
type VoteRequest struct {
	Lobby  sharedtypes.LobbyKey
	Number sharedtypes.GameNumber
	UserID sharedtypes.UserID
	Vote   matchmakingdomain.Vote
}

// ResultRequest is a moderator's result submission. Number 0 targets the latest game.
type ResultRequest struct {
	Lobby       sharedtypes.LobbyKey
	Number      sharedtypes.GameNumber
	Winner      sharedtypes.Team
	ModeratorID sharedtypes.UserID
	Comment     string
}

// ResolveRequest targets a game for draw, cancel or undo. Number 0 targets the latest game.
type ResolveRequest struct {
	Lobby       sharedtypes.LobbyKey
	Number      sharedtypes.GameNumber
	ModeratorID sharedtypes.UserID
	Comment     string
}

// GameResult reports a lifecycle transition. Next is the game formed from a queue
// that was waiting for this one to finish.
type GameResult struct {
	Game     *matchmakingdomain.Game
	Changes  []ratingdomain.ScoreChange
	Warnings []string
	Next     *matchmakingdomain.Game

	announcements []Announcement
}

// VoteResult reports a vote and whatever its consensus resolved.
type VoteResult struct {
	Consensus matchmakingdomain.Consensus
	GameResult
}
