package ratinghandlers

import (
	"context"

	ratingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/application"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
)

// FakeService implements ratingservice.Service for handler testing.
type FakeService struct {
	trace []string

	RegisterFunc          func(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, displayName string) (*ratingdomain.Player, error)
	SetRankFunc           func(ctx context.Context, rank ratingdomain.Rank) error
	UpdateCompetitionFunc func(ctx context.Context, competition ratingdomain.Competition) error
	RecordManualGameFunc  func(ctx context.Context, req ratingservice.ManualGameRequest) (*ratingservice.ManualGameResult, error)
	UndoManualGameFunc    func(ctx context.Context, guildID sharedtypes.GuildID, number int64) (*ratingservice.ManualGameResult, error)
	BanPlayerFunc         func(ctx context.Context, req ratingservice.BanRequest) (*ratingdomain.Ban, error)
	UnbanPlayerFunc       func(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) error
	LeaderboardFunc       func(ctx context.Context, query ratingservice.LeaderboardQuery) ([]ratingservice.LeaderboardEntry, error)
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

func (f *FakeService) Register(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, displayName string) (*ratingdomain.Player, error) {
	f.record("Register")
	if f.RegisterFunc != nil {
		return f.RegisterFunc(ctx, guildID, userID, displayName)
	}
	return &ratingdomain.Player{GuildID: guildID, UserID: userID, DisplayName: displayName}, nil
}

func (f *FakeService) GetPlayer(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdomain.Player, error) {
	f.record("GetPlayer")
	return &ratingdomain.Player{GuildID: guildID, UserID: userID}, nil
}

func (f *FakeService) Rename(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, displayName string) ([]string, error) {
	f.record("Rename")
	return nil, nil
}

func (f *FakeService) SetRank(ctx context.Context, rank ratingdomain.Rank) error {
	f.record("SetRank")
	if f.SetRankFunc != nil {
		return f.SetRankFunc(ctx, rank)
	}
	return nil
}

func (f *FakeService) RemoveRank(ctx context.Context, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) error {
	f.record("RemoveRank")
	return nil
}

func (f *FakeService) ListRanks(ctx context.Context, guildID sharedtypes.GuildID) ([]ratingdomain.Rank, error) {
	f.record("ListRanks")
	return nil, nil
}

func (f *FakeService) GetCompetition(ctx context.Context, guildID sharedtypes.GuildID) (ratingdomain.Competition, error) {
	f.record("GetCompetition")
	return ratingdomain.DefaultCompetition(guildID), nil
}

func (f *FakeService) UpdateCompetition(ctx context.Context, competition ratingdomain.Competition) error {
	f.record("UpdateCompetition")
	if f.UpdateCompetitionFunc != nil {
		return f.UpdateCompetitionFunc(ctx, competition)
	}
	return nil
}

func (f *FakeService) RecordManualGame(ctx context.Context, req ratingservice.ManualGameRequest) (*ratingservice.ManualGameResult, error) {
	f.record("RecordManualGame")
	if f.RecordManualGameFunc != nil {
		return f.RecordManualGameFunc(ctx, req)
	}
	return &ratingservice.ManualGameResult{Number: 1}, nil
}

func (f *FakeService) UndoManualGame(ctx context.Context, guildID sharedtypes.GuildID, number int64) (*ratingservice.ManualGameResult, error) {
	f.record("UndoManualGame")
	if f.UndoManualGameFunc != nil {
		return f.UndoManualGameFunc(ctx, guildID, number)
	}
	return &ratingservice.ManualGameResult{Number: number}, nil
}

func (f *FakeService) BanPlayer(ctx context.Context, req ratingservice.BanRequest) (*ratingdomain.Ban, error) {
	f.record("BanPlayer")
	if f.BanPlayerFunc != nil {
		return f.BanPlayerFunc(ctx, req)
	}
	return &ratingdomain.Ban{GuildID: req.GuildID, UserID: req.UserID}, nil
}

func (f *FakeService) UnbanPlayer(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) error {
	f.record("UnbanPlayer")
	if f.UnbanPlayerFunc != nil {
		return f.UnbanPlayerFunc(ctx, guildID, userID)
	}
	return nil
}

func (f *FakeService) ActiveBan(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdomain.Ban, error) {
	f.record("ActiveBan")
	return nil, nil
}

func (f *FakeService) Leaderboard(ctx context.Context, query ratingservice.LeaderboardQuery) ([]ratingservice.LeaderboardEntry, error) {
	f.record("Leaderboard")
	if f.LeaderboardFunc != nil {
		return f.LeaderboardFunc(ctx, query)
	}
	return nil, nil
}

func (f *FakeService) ExportLeaderboard(ctx context.Context, query ratingservice.LeaderboardQuery) ([]byte, error) {
	f.record("ExportLeaderboard")
	return nil, nil
}

var _ ratingservice.Service = (*FakeService)(nil)
