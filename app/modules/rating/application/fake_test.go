package ratingservice

import (
	"context"
	"sort"
	"time"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Rating Repo
// ------------------------

// FakeRatingRepo keeps rows in memory. Any XFunc set overrides the in-memory behavior.
type FakeRatingRepo struct {
	trace []string

	players     map[sharedtypes.UserID]*ratingdb.Player
	ranks       []ratingdb.Rank
	competition *ratingdb.Competition
	manual      map[int64]*ratingdb.ManualGame
	updates     map[int64][]ratingdb.ScoreUpdate
	bans        []ratingdb.Ban

	SaveScoreFunc    func(ctx context.Context, db bun.IDB, player *ratingdb.Player) error
	CountPlayersFunc func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (int, error)
	CreatePlayerFunc func(ctx context.Context, db bun.IDB, player *ratingdb.Player) error
}

func NewFakeRatingRepo() *FakeRatingRepo {
	return &FakeRatingRepo{
		trace:   []string{},
		players: map[sharedtypes.UserID]*ratingdb.Player{},
		manual:  map[int64]*ratingdb.ManualGame{},
		updates: map[int64][]ratingdb.ScoreUpdate{},
	}
}

func (f *FakeRatingRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeRatingRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRatingRepo) seedPlayer(guildID sharedtypes.GuildID, userID sharedtypes.UserID, points int) {
	f.players[userID] = &ratingdb.Player{GuildID: guildID, UserID: userID, DisplayName: string(userID), Points: points}
}

// --- Repository Interface Implementation ---

func (f *FakeRatingRepo) GetPlayer(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdb.Player, error) {
	f.record("GetPlayer")
	p, ok := f.players[userID]
	if !ok {
		return nil, ratingdb.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *FakeRatingRepo) GetPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) ([]ratingdb.Player, error) {
	f.record("GetPlayers")
	var out []ratingdb.Player
	for _, id := range userIDs {
		if p, ok := f.players[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *FakeRatingRepo) CreatePlayer(ctx context.Context, db bun.IDB, player *ratingdb.Player) error {
	f.record("CreatePlayer")
	if f.CreatePlayerFunc != nil {
		return f.CreatePlayerFunc(ctx, db, player)
	}
	cp := *player
	f.players[player.UserID] = &cp
	return nil
}

func (f *FakeRatingRepo) UpdateDisplayName(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, name string) error {
	f.record("UpdateDisplayName")
	p, ok := f.players[userID]
	if !ok {
		return ratingdb.ErrNoRowsAffected
	}
	p.DisplayName = name
	return nil
}

func (f *FakeRatingRepo) SaveScore(ctx context.Context, db bun.IDB, player *ratingdb.Player) error {
	f.record("SaveScore")
	if f.SaveScoreFunc != nil {
		return f.SaveScoreFunc(ctx, db, player)
	}
	cp := *player
	f.players[player.UserID] = &cp
	return nil
}

func (f *FakeRatingRepo) CountPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (int, error) {
	f.record("CountPlayers")
	if f.CountPlayersFunc != nil {
		return f.CountPlayersFunc(ctx, db, guildID)
	}
	return len(f.players), nil
}

func (f *FakeRatingRepo) ListTopPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, limit int, only []sharedtypes.UserID) ([]ratingdb.Player, error) {
	f.record("ListTopPlayers")
	allowed := map[sharedtypes.UserID]bool{}
	for _, id := range only {
		allowed[id] = true
	}
	var out []ratingdb.Player
	for _, p := range f.players {
		if len(only) > 0 && !allowed[p.UserID] {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeRatingRepo) ListRanks(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]ratingdb.Rank, error) {
	f.record("ListRanks")
	return append([]ratingdb.Rank(nil), f.ranks...), nil
}

func (f *FakeRatingRepo) UpsertRank(ctx context.Context, db bun.IDB, rank *ratingdb.Rank) error {
	f.record("UpsertRank")
	for i := range f.ranks {
		if f.ranks[i].RoleID == rank.RoleID {
			f.ranks[i] = *rank
			return nil
		}
	}
	f.ranks = append(f.ranks, *rank)
	return nil
}

func (f *FakeRatingRepo) DeleteRank(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) error {
	f.record("DeleteRank")
	for i := range f.ranks {
		if f.ranks[i].RoleID == roleID {
			f.ranks = append(f.ranks[:i], f.ranks[i+1:]...)
			return nil
		}
	}
	return ratingdb.ErrNoRowsAffected
}

func (f *FakeRatingRepo) GetCompetition(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (*ratingdb.Competition, error) {
	f.record("GetCompetition")
	if f.competition == nil {
		return nil, ratingdb.ErrNotFound
	}
	cp := *f.competition
	return &cp, nil
}

func (f *FakeRatingRepo) UpsertCompetition(ctx context.Context, db bun.IDB, competition *ratingdb.Competition) error {
	f.record("UpsertCompetition")
	cp := *competition
	f.competition = &cp
	return nil
}

func (f *FakeRatingRepo) NextManualGameNumber(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (int64, error) {
	f.record("NextManualGameNumber")
	return int64(len(f.manual) + 1), nil
}

func (f *FakeRatingRepo) CreateManualGame(ctx context.Context, db bun.IDB, game *ratingdb.ManualGame, updates []ratingdb.ScoreUpdate) error {
	f.record("CreateManualGame")
	cp := *game
	f.manual[game.Number] = &cp
	f.updates[game.Number] = append([]ratingdb.ScoreUpdate(nil), updates...)
	return nil
}

func (f *FakeRatingRepo) GetManualGame(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, number int64) (*ratingdb.ManualGame, []ratingdb.ScoreUpdate, error) {
	f.record("GetManualGame")
	g, ok := f.manual[number]
	if !ok {
		return nil, nil, ratingdb.ErrNotFound
	}
	cp := *g
	return &cp, f.updates[number], nil
}

func (f *FakeRatingRepo) MarkManualGameUndone(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, number int64, at time.Time) error {
	f.record("MarkManualGameUndone")
	g, ok := f.manual[number]
	if !ok || g.UndoneAt != nil {
		return ratingdb.ErrNoRowsAffected
	}
	g.UndoneAt = &at
	return nil
}

func (f *FakeRatingRepo) CreateBan(ctx context.Context, db bun.IDB, ban *ratingdb.Ban) error {
	f.record("CreateBan")
	ban.ID = int64(len(f.bans) + 1)
	f.bans = append(f.bans, *ban)
	return nil
}

func (f *FakeRatingRepo) ListBans(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) ([]ratingdb.Ban, error) {
	f.record("ListBans")
	var out []ratingdb.Ban
	for _, b := range f.bans {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *FakeRatingRepo) OverrideBans(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (int, error) {
	f.record("OverrideBans")
	n := 0
	for i := range f.bans {
		if f.bans[i].UserID == userID && !f.bans[i].Overridden {
			f.bans[i].Overridden = true
			n++
		}
	}
	return n, nil
}

// Ensure the fake actually satisfies the interface
var _ ratingdb.Repository = (*FakeRatingRepo)(nil)

// ------------------------
// Fake Platform
// ------------------------

type FakePlatform struct {
	Syncs   []identity.MemberSync
	SyncErr error
	Directs []identity.DirectMessage
}

func (f *FakePlatform) SyncMember(ctx context.Context, req identity.MemberSync) error {
	f.Syncs = append(f.Syncs, req)
	return f.SyncErr
}

func (f *FakePlatform) SendDirect(ctx context.Context, dm identity.DirectMessage) error {
	f.Directs = append(f.Directs, dm)
	return nil
}

var _ identity.Platform = (*FakePlatform)(nil)

func snapshot(f *FakeRatingRepo) map[sharedtypes.UserID]ratingdomain.Player {
	out := map[sharedtypes.UserID]ratingdomain.Player{}
	for id, p := range f.players {
		out[id] = toDomainPlayer(*p)
	}
	return out
}
