package matchmakingdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository is the matchmaking persistence API. Every method takes the bun.IDB to
// run on so callers can compose them in one transaction; nil uses the default handle.
type Repository interface {
	// Lobbies
	CreateLobby(ctx context.Context, db bun.IDB, lobby *Lobby) error
	GetLobby(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (*Lobby, error)
	UpdateLobby(ctx context.Context, db bun.IDB, lobby *Lobby) error
	DeleteLobby(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) error
	ListLobbiesWithTimeout(ctx context.Context, db bun.IDB) ([]Lobby, error)
	ListMaps(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) ([]string, error)
	AddMap(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, name string) error
	RemoveMap(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, name string) error

	// Queue
	ListQueue(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) ([]QueuedPlayer, error)
	Enqueue(ctx context.Context, db bun.IDB, player *QueuedPlayer) error
	Dequeue(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userIDs []sharedtypes.UserID) (int, error)
	ClearQueue(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) error
	QueuedElsewhere(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userID sharedtypes.UserID) (bool, error)
	ListQueuedElsewhere(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userIDs []sharedtypes.UserID) ([]QueuedPlayer, error)

	// Games
	NextGameNumber(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (sharedtypes.GameNumber, error)
	GameNumbersInState(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, states ...string) ([]sharedtypes.GameNumber, error)
	LatestGame(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (*GameRecord, error)
	GetGame(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, number sharedtypes.GameNumber) (*GameRecord, error)
	ListGames(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, limit int) ([]Game, error)
	CreateGame(ctx context.Context, db bun.IDB, record *GameRecord) error
	SaveGame(ctx context.Context, db bun.IDB, record *GameRecord) error

	// Parties
	ListPartyMembers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]PartyMember, error)
	GetPartyMember(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, memberID sharedtypes.UserID) (*PartyMember, error)
	AddPartyMember(ctx context.Context, db bun.IDB, member *PartyMember) error
	RemovePartyMember(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, memberID sharedtypes.UserID) error
	DeleteParty(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, hostID sharedtypes.UserID) (int, error)
}
