package matchmakingservice

import (
	"fmt"
	"maps"
	"slices"
	"time"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	matchmakingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/elliotchance/pie/v2"
)

func toDomainLobby(row matchmakingdb.Lobby, mapNames []string) *matchmakingdomain.Lobby {
	return &matchmakingdomain.Lobby{
		Key:            sharedtypes.LobbyKey{GuildID: row.GuildID, ChannelID: row.ChannelID},
		PlayersPerTeam: row.PlayersPerTeam,
		PickMode:       matchmakingdomain.PickMode(row.PickMode),
		PickOrder:      matchmakingdomain.PickOrder(row.PickOrder),
		MinPoints:      row.MinPoints,
		Score: ratingdomain.ScoreSettings{
			Multiplier:      row.Multiplier,
			HighLimit:       row.HighLimit,
			ReductionFactor: row.ReductionFactor,
			MultiplyLoss:    row.MultiplyLoss,
		},
		QueueTimeout:        time.Duration(row.QueueTimeoutSeconds) * time.Second,
		HideQueue:           row.HideQueue,
		DMOnReady:           row.DMOnReady,
		AnnouncementChannel: row.AnnouncementChannel,
		Maps:                mapNames,
		CreatedAt:           row.CreatedAt,
	}
}

func toLobbyRow(l *matchmakingdomain.Lobby) *matchmakingdb.Lobby {
	return &matchmakingdb.Lobby{
		GuildID:             l.Key.GuildID,
		ChannelID:           l.Key.ChannelID,
		PlayersPerTeam:      l.PlayersPerTeam,
		PickMode:            string(l.PickMode),
		PickOrder:           string(l.PickOrder),
		MinPoints:           l.MinPoints,
		Multiplier:          l.Score.Multiplier,
		HighLimit:           l.Score.HighLimit,
		ReductionFactor:     l.Score.ReductionFactor,
		MultiplyLoss:        l.Score.MultiplyLoss,
		QueueTimeoutSeconds: int64(l.QueueTimeout / time.Second),
		HideQueue:           l.HideQueue,
		DMOnReady:           l.DMOnReady,
		AnnouncementChannel: l.AnnouncementChannel,
		CreatedAt:           l.CreatedAt,
	}
}

func toDomainQueue(rows []matchmakingdb.QueuedPlayer) []matchmakingdomain.QueuedPlayer {
	return pie.Map(rows, func(q matchmakingdb.QueuedPlayer) matchmakingdomain.QueuedPlayer {
		return matchmakingdomain.QueuedPlayer{
			Lobby:    sharedtypes.LobbyKey{GuildID: q.GuildID, ChannelID: q.ChannelID},
			UserID:   q.UserID,
			QueuedAt: q.QueuedAt,
		}
	})
}

func queueUserIDs(queue []matchmakingdomain.QueuedPlayer) []sharedtypes.UserID {
	return pie.Map(queue, func(q matchmakingdomain.QueuedPlayer) sharedtypes.UserID { return q.UserID })
}

func toDomainGame(rec *matchmakingdb.GameRecord) (*matchmakingdomain.Game, error) {
	g := rec.Game
	res := matchmakingdomain.Resolution{By: g.ResolvedBy, Comment: g.Comment}
	if g.ResolvedAt != nil {
		res.At = *g.ResolvedAt
	}

	var phase matchmakingdomain.Phase
	switch matchmakingdomain.State(g.State) {
	case matchmakingdomain.StatePicking:
		phase = matchmakingdomain.Picking{}
	case matchmakingdomain.StateUndecided:
		phase = matchmakingdomain.Undecided{VoteLocked: g.VoteLocked}
	case matchmakingdomain.StateDecided:
		phase = matchmakingdomain.Decided{Winner: g.Winner, Resolution: res}
	case matchmakingdomain.StateDraw:
		phase = matchmakingdomain.Drawn{Resolution: res}
	case matchmakingdomain.StateCanceled:
		phase = matchmakingdomain.Canceled{Resolution: res}
	default:
		return nil, fmt.Errorf("game %d has unknown state %q", g.Number, g.State)
	}

	captains := make(map[sharedtypes.UserID]bool, len(rec.Teams))
	for _, t := range rec.Teams {
		if t.CaptainID != "" {
			captains[t.CaptainID] = true
		}
	}
	players := slices.Clone(rec.Players)
	slices.SortStableFunc(players, func(a, b matchmakingdb.GamePlayer) int { return a.Position - b.Position })
	roster := make(matchmakingdomain.Roster, 0, len(players))
	for _, p := range players {
		roster = append(roster, matchmakingdomain.Member{UserID: p.UserID, Team: p.Team, Captain: captains[p.UserID]})
	}

	var votes map[sharedtypes.UserID]matchmakingdomain.Vote
	if len(rec.Votes) > 0 {
		votes = make(map[sharedtypes.UserID]matchmakingdomain.Vote, len(rec.Votes))
		for _, v := range rec.Votes {
			votes[v.UserID] = matchmakingdomain.Vote(v.Vote)
		}
	}

	return &matchmakingdomain.Game{
		Lobby:     sharedtypes.LobbyKey{GuildID: g.GuildID, ChannelID: g.ChannelID},
		Number:    g.Number,
		Phase:     phase,
		PickMode:  matchmakingdomain.PickMode(g.PickMode),
		PickOrder: matchmakingdomain.PickOrder(g.PickOrder),
		Picks:     g.Picks,
		Roster:    roster,
		Map:       g.MapName,
		Scores: pie.Map(rec.Scores, func(s matchmakingdb.GameScore) matchmakingdomain.PlayerScore {
			return matchmakingdomain.PlayerScore{UserID: s.UserID, Outcome: ratingdomain.Outcome(s.Outcome), Delta: s.Delta}
		}),
		Votes:     votes,
		CreatedAt: g.CreatedAt,
		Legacy:    g.Legacy,
	}, nil
}

func toGameRecord(game *matchmakingdomain.Game) *matchmakingdb.GameRecord {
	key := game.Lobby
	row := matchmakingdb.Game{
		GuildID:   key.GuildID,
		ChannelID: key.ChannelID,
		Number:    game.Number,
		State:     string(game.Phase.State()),
		PickMode:  string(game.PickMode),
		PickOrder: string(game.PickOrder),
		Picks:     game.Picks,
		MapName:   game.Map,
		Legacy:    game.Legacy,
		CreatedAt: game.CreatedAt,
	}

	var res *matchmakingdomain.Resolution
	switch p := game.Phase.(type) {
	case matchmakingdomain.Picking:
	case matchmakingdomain.Undecided:
		row.VoteLocked = p.VoteLocked
	case matchmakingdomain.Decided:
		row.Winner = p.Winner
		res = &p.Resolution
	case matchmakingdomain.Drawn:
		res = &p.Resolution
	case matchmakingdomain.Canceled:
		res = &p.Resolution
	default:
		panic("matchmaking: unknown game phase")
	}
	if res != nil {
		row.ResolvedBy = res.By
		row.Comment = res.Comment
		at := res.At
		row.ResolvedAt = &at
	}

	rec := &matchmakingdb.GameRecord{Game: row}
	for _, team := range []sharedtypes.Team{sharedtypes.TeamOne, sharedtypes.TeamTwo} {
		rec.Teams = append(rec.Teams, matchmakingdb.GameTeam{
			GuildID:    key.GuildID,
			ChannelID:  key.ChannelID,
			GameNumber: game.Number,
			Team:       team,
			CaptainID:  game.Roster.Captain(team),
		})
	}
	for i, m := range game.Roster {
		rec.Players = append(rec.Players, matchmakingdb.GamePlayer{
			GuildID:    key.GuildID,
			ChannelID:  key.ChannelID,
			GameNumber: game.Number,
			UserID:     m.UserID,
			Team:       m.Team,
			Position:   i,
		})
	}
	for _, sc := range game.Scores {
		rec.Scores = append(rec.Scores, matchmakingdb.GameScore{
			GuildID:    key.GuildID,
			ChannelID:  key.ChannelID,
			GameNumber: game.Number,
			UserID:     sc.UserID,
			Outcome:    string(sc.Outcome),
			Delta:      sc.Delta,
		})
	}
	voters := slices.Sorted(maps.Keys(game.Votes))
	for _, voter := range voters {
		rec.Votes = append(rec.Votes, matchmakingdb.GameVote{
			GuildID:    key.GuildID,
			ChannelID:  key.ChannelID,
			GameNumber: game.Number,
			UserID:     voter,
			Vote:       string(game.Votes[voter]),
		})
	}
	return rec
}

// cloneGame copies a game so announcements never alias state that a later
// operation mutates.
func cloneGame(g *matchmakingdomain.Game) *matchmakingdomain.Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Roster = slices.Clone(g.Roster)
	c.Scores = slices.Clone(g.Scores)
	c.Votes = maps.Clone(g.Votes)
	return &c
}
