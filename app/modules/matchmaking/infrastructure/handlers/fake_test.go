package matchmakinghandlers

import (
	"context"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// FakeService implements matchmakingservice.Service for handler testing.
type FakeService struct {
	trace []string

	CreateLobbyFunc  func(ctx context.Context, key sharedtypes.LobbyKey, playersPerTeam int) (*matchmakingdomain.Lobby, error)
	UpdateLobbyFunc  func(ctx context.Context, key sharedtypes.LobbyKey, update matchmakingservice.LobbyUpdate) (*matchmakingservice.LobbyUpdateResult, error)
	DeleteLobbyFunc  func(ctx context.Context, key sharedtypes.LobbyKey) error
	AddMapFunc       func(ctx context.Context, key sharedtypes.LobbyKey, name string) error
	JoinFunc         func(ctx context.Context, key sharedtypes.LobbyKey, userID sharedtypes.UserID) (*matchmakingservice.JoinResult, error)
	LeaveFunc        func(ctx context.Context, key sharedtypes.LobbyKey, userID sharedtypes.UserID) error
	GetQueueFunc     func(ctx context.Context, key sharedtypes.LobbyKey, reveal bool) (*matchmakingservice.QueueView, error)
	PickFunc         func(ctx context.Context, key sharedtypes.LobbyKey, captain sharedtypes.UserID, players []sharedtypes.UserID) (*matchmakingservice.PickOutcome, error)
	VoteFunc         func(ctx context.Context, req matchmakingservice.VoteRequest) (*matchmakingservice.VoteResult, error)
	SubmitResultFunc func(ctx context.Context, req matchmakingservice.ResultRequest) (*matchmakingservice.GameResult, error)
	UndoGameFunc     func(ctx context.Context, req matchmakingservice.ResolveRequest) (*matchmakingservice.GameResult, error)
	AddPartyFunc     func(ctx context.Context, guildID sharedtypes.GuildID, hostID, memberID sharedtypes.UserID) error
	ListPartiesFunc  func(ctx context.Context, guildID sharedtypes.GuildID) ([][]sharedtypes.UserID, error)
}

func NewFakeService() *FakeService {
	return &FakeService{trace: []string{}}
}

func (f *FakeService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeService) Trace() []string {
	return f.trace
}

func fakeGame(key sharedtypes.LobbyKey) *matchmakingdomain.Game {
	return &matchmakingdomain.Game{
		Lobby:    key,
		Number:   1,
		Phase:    matchmakingdomain.Undecided{},
		PickMode: matchmakingdomain.PickModeRandom,
		Roster: matchmakingdomain.Roster{
			{UserID: "a", Team: sharedtypes.TeamOne},
			{UserID: "b", Team: sharedtypes.TeamTwo},
		},
	}
}

func (f *FakeService) CreateLobby(ctx context.Context, key sharedtypes.LobbyKey, playersPerTeam int) (*matchmakingdomain.Lobby, error) {
	f.record("CreateLobby")
	if f.CreateLobbyFunc != nil {
		return f.CreateLobbyFunc(ctx, key, playersPerTeam)
	}
	lobby := matchmakingdomain.NewLobby(key, playersPerTeam, fixedNow)
	return &lobby, nil
}

func (f *FakeService) UpdateLobby(ctx context.Context, key sharedtypes.LobbyKey, update matchmakingservice.LobbyUpdate) (*matchmakingservice.LobbyUpdateResult, error) {
	f.record("UpdateLobby")
	if f.UpdateLobbyFunc != nil {
		return f.UpdateLobbyFunc(ctx, key, update)
	}
	lobby := matchmakingdomain.NewLobby(key, 0, fixedNow)
	return &matchmakingservice.LobbyUpdateResult{Lobby: &lobby}, nil
}

func (f *FakeService) DeleteLobby(ctx context.Context, key sharedtypes.LobbyKey) error {
	f.record("DeleteLobby")
	if f.DeleteLobbyFunc != nil {
		return f.DeleteLobbyFunc(ctx, key)
	}
	return nil
}

func (f *FakeService) GetLobby(ctx context.Context, key sharedtypes.LobbyKey) (*matchmakingdomain.Lobby, error) {
	f.record("GetLobby")
	lobby := matchmakingdomain.NewLobby(key, 0, fixedNow)
	lobby.Maps = []string{"Dust"}
	return &lobby, nil
}

func (f *FakeService) AddMap(ctx context.Context, key sharedtypes.LobbyKey, name string) error {
	f.record("AddMap")
	if f.AddMapFunc != nil {
		return f.AddMapFunc(ctx, key, name)
	}
	return nil
}

func (f *FakeService) RemoveMap(ctx context.Context, key sharedtypes.LobbyKey, name string) error {
	f.record("RemoveMap")
	return nil
}

func (f *FakeService) Join(ctx context.Context, key sharedtypes.LobbyKey, userID sharedtypes.UserID) (*matchmakingservice.JoinResult, error) {
	f.record("Join")
	if f.JoinFunc != nil {
		return f.JoinFunc(ctx, key, userID)
	}
	return &matchmakingservice.JoinResult{
		Queue:    []matchmakingdomain.QueuedPlayer{{Lobby: key, UserID: userID}},
		Capacity: 10,
	}, nil
}

func (f *FakeService) Leave(ctx context.Context, key sharedtypes.LobbyKey, userID sharedtypes.UserID) error {
	f.record("Leave")
	if f.LeaveFunc != nil {
		return f.LeaveFunc(ctx, key, userID)
	}
	return nil
}

func (f *FakeService) GetQueue(ctx context.Context, key sharedtypes.LobbyKey, reveal bool) (*matchmakingservice.QueueView, error) {
	f.record("GetQueue")
	if f.GetQueueFunc != nil {
		return f.GetQueueFunc(ctx, key, reveal)
	}
	return &matchmakingservice.QueueView{Lobby: key, Capacity: 10}, nil
}

func (f *FakeService) SweepExpired(ctx context.Context) (int, error) {
	f.record("SweepExpired")
	return 0, nil
}

func (f *FakeService) Pick(ctx context.Context, key sharedtypes.LobbyKey, captain sharedtypes.UserID, players []sharedtypes.UserID) (*matchmakingservice.PickOutcome, error) {
	f.record("Pick")
	if f.PickFunc != nil {
		return f.PickFunc(ctx, key, captain, players)
	}
	return &matchmakingservice.PickOutcome{Game: fakeGame(key)}, nil
}

func (f *FakeService) Vote(ctx context.Context, req matchmakingservice.VoteRequest) (*matchmakingservice.VoteResult, error) {
	f.record("Vote")
	if f.VoteFunc != nil {
		return f.VoteFunc(ctx, req)
	}
	return &matchmakingservice.VoteResult{GameResult: matchmakingservice.GameResult{Game: fakeGame(req.Lobby)}}, nil
}

func (f *FakeService) SubmitResult(ctx context.Context, req matchmakingservice.ResultRequest) (*matchmakingservice.GameResult, error) {
	f.record("SubmitResult")
	if f.SubmitResultFunc != nil {
		return f.SubmitResultFunc(ctx, req)
	}
	return &matchmakingservice.GameResult{Game: fakeGame(req.Lobby)}, nil
}

func (f *FakeService) Draw(ctx context.Context, req matchmakingservice.ResolveRequest) (*matchmakingservice.GameResult, error) {
	f.record("Draw")
	return &matchmakingservice.GameResult{Game: fakeGame(req.Lobby)}, nil
}

func (f *FakeService) Cancel(ctx context.Context, req matchmakingservice.ResolveRequest) (*matchmakingservice.GameResult, error) {
	f.record("Cancel")
	return &matchmakingservice.GameResult{Game: fakeGame(req.Lobby)}, nil
}

func (f *FakeService) UndoGame(ctx context.Context, req matchmakingservice.ResolveRequest) (*matchmakingservice.GameResult, error) {
	f.record("UndoGame")
	if f.UndoGameFunc != nil {
		return f.UndoGameFunc(ctx, req)
	}
	return &matchmakingservice.GameResult{Game: fakeGame(req.Lobby)}, nil
}

func (f *FakeService) GetGame(ctx context.Context, key sharedtypes.LobbyKey, number sharedtypes.GameNumber) (*matchmakingdomain.Game, error) {
	f.record("GetGame")
	return fakeGame(key), nil
}

func (f *FakeService) ListGames(ctx context.Context, key sharedtypes.LobbyKey, limit int) ([]*matchmakingdomain.Game, error) {
	f.record("ListGames")
	return []*matchmakingdomain.Game{fakeGame(key)}, nil
}

func (f *FakeService) AddPartyMember(ctx context.Context, guildID sharedtypes.GuildID, hostID, memberID sharedtypes.UserID) error {
	f.record("AddPartyMember")
	if f.AddPartyFunc != nil {
		return f.AddPartyFunc(ctx, guildID, hostID, memberID)
	}
	return nil
}

func (f *FakeService) LeaveParty(ctx context.Context, guildID sharedtypes.GuildID, memberID sharedtypes.UserID) error {
	f.record("LeaveParty")
	return nil
}

func (f *FakeService) DisbandParty(ctx context.Context, guildID sharedtypes.GuildID, hostID sharedtypes.UserID) (int, error) {
	f.record("DisbandParty")
	return 1, nil
}

func (f *FakeService) ListParties(ctx context.Context, guildID sharedtypes.GuildID) ([][]sharedtypes.UserID, error) {
	f.record("ListParties")
	if f.ListPartiesFunc != nil {
		return f.ListPartiesFunc(ctx, guildID)
	}
	return nil, nil
}

var _ matchmakingservice.Service = (*FakeService)(nil)
