package matchmakingservice

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Matchmaking Repo
// ------------------------

type gameKey struct {
	lobby  sharedtypes.LobbyKey
	number sharedtypes.GameNumber
}

// FakeMatchmakingRepo keeps rows in memory. Any XFunc set overrides the in-memory behavior.
type FakeMatchmakingRepo struct {
	trace []string

	lobbies map[sharedtypes.LobbyKey]*matchmakingdb.Lobby
	maps    map[sharedtypes.LobbyKey][]string
	queue   []matchmakingdb.QueuedPlayer
	games   map[gameKey]*matchmakingdb.GameRecord
	parties []matchmakingdb.PartyMember

	SaveGameFunc   func(ctx context.Context, db bun.IDB, record *matchmakingdb.GameRecord) error
	CreateGameFunc func(ctx context.Context, db bun.IDB, record *matchmakingdb.GameRecord) error
}

func NewFakeMatchmakingRepo() *FakeMatchmakingRepo {
	return &FakeMatchmakingRepo{
		trace:   []string{},
		lobbies: map[sharedtypes.LobbyKey]*matchmakingdb.Lobby{},
		maps:    map[sharedtypes.LobbyKey][]string{},
		games:   map[gameKey]*matchmakingdb.GameRecord{},
	}
}

func (f *FakeMatchmakingRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeMatchmakingRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeMatchmakingRepo) queueOf(key sharedtypes.LobbyKey) []sharedtypes.UserID {
	var out []sharedtypes.UserID
	for _, q := range f.queue {
		if q.GuildID == key.GuildID && q.ChannelID == key.ChannelID {
			out = append(out, q.UserID)
		}
	}
	return out
}

func cloneRecord(r *matchmakingdb.GameRecord) *matchmakingdb.GameRecord {
	c := *r
	c.Teams = slices.Clone(r.Teams)
	c.Players = slices.Clone(r.Players)
	c.Scores = slices.Clone(r.Scores)
	c.Votes = slices.Clone(r.Votes)
	return &c
}

// --- Repository Interface Implementation ---

func (f *FakeMatchmakingRepo) CreateLobby(ctx context.Context, db bun.IDB, lobby *matchmakingdb.Lobby) error {
	f.record("CreateLobby")
	key := sharedtypes.LobbyKey{GuildID: lobby.GuildID, ChannelID: lobby.ChannelID}
	if _, ok := f.lobbies[key]; ok {
		return matchmakingdb.ErrAlreadyExists
	}
	c := *lobby
	f.lobbies[key] = &c
	return nil
}

func (f *FakeMatchmakingRepo) GetLobby(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (*matchmakingdb.Lobby, error) {
	f.record("GetLobby")
	l, ok := f.lobbies[key]
	if !ok {
		return nil, matchmakingdb.ErrNotFound
	}
	c := *l
	return &c, nil
}

func (f *FakeMatchmakingRepo) UpdateLobby(ctx context.Context, db bun.IDB, lobby *matchmakingdb.Lobby) error {
	f.record("UpdateLobby")
	key := sharedtypes.LobbyKey{GuildID: lobby.GuildID, ChannelID: lobby.ChannelID}
	if _, ok := f.lobbies[key]; !ok {
		return matchmakingdb.ErrNoRowsAffected
	}
	c := *lobby
	f.lobbies[key] = &c
	return nil
}

func (f *FakeMatchmakingRepo) DeleteLobby(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) error {
	f.record("DeleteLobby")
	if _, ok := f.lobbies[key]; !ok {
		return matchmakingdb.ErrNoRowsAffected
	}
	delete(f.lobbies, key)
	delete(f.maps, key)
	_ = f.ClearQueue(ctx, db, key)
	for k := range f.games {
		if k.lobby == key {
			delete(f.games, k)
		}
	}
	return nil
}

func (f *FakeMatchmakingRepo) ListLobbiesWithTimeout(ctx context.Context, db bun.IDB) ([]matchmakingdb.Lobby, error) {
	f.record("ListLobbiesWithTimeout")
	var out []matchmakingdb.Lobby
	for _, l := range f.lobbies {
		if l.QueueTimeoutSeconds > 0 {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (f *FakeMatchmakingRepo) ListMaps(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) ([]string, error) {
	f.record("ListMaps")
	return slices.Clone(f.maps[key]), nil
}

func (f *FakeMatchmakingRepo) AddMap(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, name string) error {
	f.record("AddMap")
	if slices.Contains(f.maps[key], name) {
		return matchmakingdb.ErrAlreadyExists
	}
	f.maps[key] = append(f.maps[key], name)
	slices.Sort(f.maps[key])
	return nil
}

func (f *FakeMatchmakingRepo) RemoveMap(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, name string) error {
	f.record("RemoveMap")
	i := slices.Index(f.maps[key], name)
	if i < 0 {
		return matchmakingdb.ErrNoRowsAffected
	}
	f.maps[key] = slices.Delete(f.maps[key], i, i+1)
	return nil
}

func (f *FakeMatchmakingRepo) ListQueue(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) ([]matchmakingdb.QueuedPlayer, error) {
	f.record("ListQueue")
	var out []matchmakingdb.QueuedPlayer
	for _, q := range f.queue {
		if q.GuildID == key.GuildID && q.ChannelID == key.ChannelID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *FakeMatchmakingRepo) Enqueue(ctx context.Context, db bun.IDB, player *matchmakingdb.QueuedPlayer) error {
	f.record("Enqueue")
	f.queue = append(f.queue, *player)
	return nil
}

func (f *FakeMatchmakingRepo) Dequeue(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userIDs []sharedtypes.UserID) (int, error) {
	f.record("Dequeue")
	before := len(f.queue)
	f.queue = slices.DeleteFunc(f.queue, func(q matchmakingdb.QueuedPlayer) bool {
		return q.GuildID == key.GuildID && q.ChannelID == key.ChannelID && slices.Contains(userIDs, q.UserID)
	})
	return before - len(f.queue), nil
}

func (f *FakeMatchmakingRepo) ClearQueue(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) error {
	f.record("ClearQueue")
	f.queue = slices.DeleteFunc(f.queue, func(q matchmakingdb.QueuedPlayer) bool {
		return q.GuildID == key.GuildID && q.ChannelID == key.ChannelID
	})
	return nil
}

func (f *FakeMatchmakingRepo) QueuedElsewhere(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userID sharedtypes.UserID) (bool, error) {
	f.record("QueuedElsewhere")
	for _, q := range f.queue {
		if q.GuildID == key.GuildID && q.ChannelID != key.ChannelID && q.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeMatchmakingRepo) ListQueuedElsewhere(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, userIDs []sharedtypes.UserID) ([]matchmakingdb.QueuedPlayer, error) {
	f.record("ListQueuedElsewhere")
	var out []matchmakingdb.QueuedPlayer
	for _, q := range f.queue {
		if q.GuildID == key.GuildID && q.ChannelID != key.ChannelID && slices.Contains(userIDs, q.UserID) {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (f *FakeMatchmakingRepo) NextGameNumber(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (sharedtypes.GameNumber, error) {
	f.record("NextGameNumber")
	var last sharedtypes.GameNumber
	for k := range f.games {
		if k.lobby == key && k.number > last {
			last = k.number
		}
	}
	return last + 1, nil
}

func (f *FakeMatchmakingRepo) GameNumbersInState(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, states ...string) ([]sharedtypes.GameNumber, error) {
	f.record("GameNumbersInState")
	var out []sharedtypes.GameNumber
	for k, rec := range f.games {
		if k.lobby == key && slices.Contains(states, rec.Game.State) {
			out = append(out, k.number)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (f *FakeMatchmakingRepo) LatestGame(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey) (*matchmakingdb.GameRecord, error) {
	f.record("LatestGame")
	var latest *matchmakingdb.GameRecord
	for k, rec := range f.games {
		if k.lobby == key && (latest == nil || k.number > latest.Game.Number) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, matchmakingdb.ErrNotFound
	}
	return cloneRecord(latest), nil
}

func (f *FakeMatchmakingRepo) GetGame(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, number sharedtypes.GameNumber) (*matchmakingdb.GameRecord, error) {
	f.record("GetGame")
	rec, ok := f.games[gameKey{key, number}]
	if !ok {
		return nil, matchmakingdb.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (f *FakeMatchmakingRepo) ListGames(ctx context.Context, db bun.IDB, key sharedtypes.LobbyKey, limit int) ([]matchmakingdb.Game, error) {
	f.record("ListGames")
	var out []matchmakingdb.Game
	for k, rec := range f.games {
		if k.lobby == key {
			out = append(out, rec.Game)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeMatchmakingRepo) CreateGame(ctx context.Context, db bun.IDB, record *matchmakingdb.GameRecord) error {
	f.record("CreateGame")
	if f.CreateGameFunc != nil {
		return f.CreateGameFunc(ctx, db, record)
	}
	key := gameKey{sharedtypes.LobbyKey{GuildID: record.Game.GuildID, ChannelID: record.Game.ChannelID}, record.Game.Number}
	if _, ok := f.games[key]; ok {
		return matchmakingdb.ErrAlreadyExists
	}
	f.games[key] = cloneRecord(record)
	return nil
}

func (f *FakeMatchmakingRepo) SaveGame(ctx context.Context, db bun.IDB, record *matchmakingdb.GameRecord) error {
	f.record("SaveGame")
	if f.SaveGameFunc != nil {
		return f.SaveGameFunc(ctx, db, record)
	}
	key := gameKey{sharedtypes.LobbyKey{GuildID: record.Game.GuildID, ChannelID: record.Game.ChannelID}, record.Game.Number}
	if _, ok := f.games[key]; !ok {
		return matchmakingdb.ErrNoRowsAffected
	}
	f.games[key] = cloneRecord(record)
	return nil
}

func (f *FakeMatchmakingRepo) ListPartyMembers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]matchmakingdb.PartyMember, error) {
	f.record("ListPartyMembers")
	var out []matchmakingdb.PartyMember
	for _, p := range f.parties {
		if p.GuildID == guildID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *FakeMatchmakingRepo) GetPartyMember(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, memberID sharedtypes.UserID) (*matchmakingdb.PartyMember, error) {
	f.record("GetPartyMember")
	for _, p := range f.parties {
		if p.GuildID == guildID && p.MemberID == memberID {
			c := p
			return &c, nil
		}
	}
	return nil, matchmakingdb.ErrNotFound
}

func (f *FakeMatchmakingRepo) AddPartyMember(ctx context.Context, db bun.IDB, member *matchmakingdb.PartyMember) error {
	f.record("AddPartyMember")
	if _, err := f.GetPartyMember(ctx, db, member.GuildID, member.MemberID); err == nil {
		return matchmakingdb.ErrAlreadyExists
	}
	f.parties = append(f.parties, *member)
	return nil
}

func (f *FakeMatchmakingRepo) RemovePartyMember(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, memberID sharedtypes.UserID) error {
	f.record("RemovePartyMember")
	before := len(f.parties)
	f.parties = slices.DeleteFunc(f.parties, func(p matchmakingdb.PartyMember) bool {
		return p.GuildID == guildID && p.MemberID == memberID
	})
	if before == len(f.parties) {
		return matchmakingdb.ErrNoRowsAffected
	}
	return nil
}

func (f *FakeMatchmakingRepo) DeleteParty(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, hostID sharedtypes.UserID) (int, error) {
	f.record("DeleteParty")
	before := len(f.parties)
	f.parties = slices.DeleteFunc(f.parties, func(p matchmakingdb.PartyMember) bool {
		return p.GuildID == guildID && p.HostID == hostID
	})
	return before - len(f.parties), nil
}

var _ matchmakingdb.Repository = (*FakeMatchmakingRepo)(nil)

// ------------------------
// Fake Ratings
// ------------------------

// FakeRatings scores games with the real calculator over in-memory players.
type FakeRatings struct {
	trace []string

	players     map[sharedtypes.UserID]*ratingdomain.Player
	competition ratingdomain.Competition
	ranks       []ratingdomain.Rank
	bans        []ratingdomain.Ban

	ApplyOutcomesFunc func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, settings ratingdomain.ScoreSettings, outcomes []ratingdomain.PlayerOutcome) ([]ratingdomain.ScoreChange, error)
}

func NewFakeRatings() *FakeRatings {
	return &FakeRatings{
		trace:       []string{},
		players:     map[sharedtypes.UserID]*ratingdomain.Player{},
		competition: ratingdomain.DefaultCompetition(guild),
	}
}

func (f *FakeRatings) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeRatings) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRatings) seed(userID sharedtypes.UserID, points int) {
	f.players[userID] = &ratingdomain.Player{GuildID: guild, UserID: userID, DisplayName: string(userID), Points: points}
}

func (f *FakeRatings) GetPlayer(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdomain.Player, error) {
	f.record("GetPlayer")
	p, ok := f.players[userID]
	if !ok {
		return nil, ratingdomain.ErrNotRegistered
	}
	c := *p
	return &c, nil
}

func (f *FakeRatings) GetPlayers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]ratingdomain.Player, error) {
	f.record("GetPlayers")
	out := map[sharedtypes.UserID]ratingdomain.Player{}
	for _, id := range userIDs {
		if p, ok := f.players[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (f *FakeRatings) GetCompetition(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) (ratingdomain.Competition, error) {
	f.record("GetCompetition")
	return f.competition, nil
}

func (f *FakeRatings) ActiveBan(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, now time.Time) (*ratingdomain.Ban, error) {
	f.record("ActiveBan")
	for _, b := range f.bans {
		if b.UserID == userID && b.Active(now) {
			c := b
			return &c, nil
		}
	}
	return nil, nil
}

func (f *FakeRatings) ApplyOutcomes(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, settings ratingdomain.ScoreSettings, outcomes []ratingdomain.PlayerOutcome) ([]ratingdomain.ScoreChange, error) {
	f.record("ApplyOutcomes")
	if f.ApplyOutcomesFunc != nil {
		return f.ApplyOutcomesFunc(ctx, db, guildID, settings, outcomes)
	}
	var changes []ratingdomain.ScoreChange
	for _, o := range outcomes {
		p, ok := f.players[o.UserID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ratingdomain.ErrNotRegistered, o.UserID)
		}
		res := ratingdomain.Calculate(ratingdomain.ScoreInput{
			Points:      p.Points,
			Outcome:     o.Outcome,
			Ranks:       f.ranks,
			Competition: f.competition,
			Settings:    settings,
		})
		p.Points = res.NewPoints
		p.GamesPlayed++
		if o.Outcome == ratingdomain.OutcomeWin {
			p.Wins++
		} else {
			p.Losses++
		}
		changes = append(changes, ratingdomain.ScoreChange{UserID: o.UserID, DisplayName: p.DisplayName, Outcome: o.Outcome, Result: res})
	}
	return changes, nil
}

func (f *FakeRatings) RevertOutcomes(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, reversals []ratingdomain.Reversal) ([]ratingdomain.ScoreChange, error) {
	f.record("RevertOutcomes")
	var changes []ratingdomain.ScoreChange
	for _, rv := range reversals {
		p := f.players[rv.UserID]
		res := ratingdomain.Revert(p.Points, rv.Delta, f.ranks, f.competition.AllowNegative)
		p.Points = res.NewPoints
		p.GamesPlayed--
		if rv.Outcome == ratingdomain.OutcomeWin {
			p.Wins--
		} else {
			p.Losses--
		}
		changes = append(changes, ratingdomain.ScoreChange{UserID: rv.UserID, DisplayName: p.DisplayName, Outcome: rv.Outcome, Result: res})
	}
	return changes, nil
}

func (f *FakeRatings) RecordDraws(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) error {
	f.record("RecordDraws")
	for _, id := range userIDs {
		p := f.players[id]
		p.Draws++
		p.GamesPlayed++
	}
	return nil
}

var _ Ratings = (*FakeRatings)(nil)

// ------------------------
// Fake Announcer
// ------------------------

type FakeAnnouncer struct {
	mu   sync.Mutex
	sent []Announcement
}

func (f *FakeAnnouncer) Announce(ctx context.Context, a Announcement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, a)
}

func (f *FakeAnnouncer) Kinds() []AnnouncementKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]AnnouncementKind, 0, len(f.sent))
	for _, a := range f.sent {
		out = append(out, a.Kind)
	}
	return out
}

func (f *FakeAnnouncer) Last(kind AnnouncementKind) *Announcement {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Kind == kind {
			a := f.sent[i]
			return &a
		}
	}
	return nil
}

// ------------------------
// Fake Platform
// ------------------------

type FakePlatform struct {
	syncs []identity.MemberSync

	SyncMemberFunc func(ctx context.Context, req identity.MemberSync) error
}

func (f *FakePlatform) SyncMember(ctx context.Context, req identity.MemberSync) error {
	f.syncs = append(f.syncs, req)
	if f.SyncMemberFunc != nil {
		return f.SyncMemberFunc(ctx, req)
	}
	return nil
}

func (f *FakePlatform) SendDirect(ctx context.Context, dm identity.DirectMessage) error {
	return nil
}
